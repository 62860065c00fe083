package orgscope

import (
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizsuite/backend/internal/domain/identity"
)

const orgColumn = "organization_id"

// OrgCallback provides GORM callback hooks for automatic row isolation
type OrgCallback struct{}

// NewOrgCallback creates a new organization callback handler
func NewOrgCallback() *OrgCallback {
	return &OrgCallback{}
}

// RegisterCallbacks registers row-isolation callbacks with GORM. Only
// registered when the store's row-level policies are disabled; with
// policies active the filter would be redundant.
func (oc *OrgCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("orgscope:before_query", oc.beforeQuery)
	_ = db.Callback().Row().Before("gorm:row").Register("orgscope:before_row", oc.beforeQuery)
	_ = db.Callback().Update().Before("gorm:update").Register("orgscope:before_update", oc.beforeUpdate)
	_ = db.Callback().Delete().Before("gorm:delete").Register("orgscope:before_delete", oc.beforeDelete)
	_ = db.Callback().Create().Before("gorm:create").Register("orgscope:before_create", oc.beforeCreate)
}

// UnregisterCallbacks removes the row-isolation callbacks, for tests only
func (oc *OrgCallback) UnregisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Remove("orgscope:before_query")
	_ = db.Callback().Row().Remove("orgscope:before_row")
	_ = db.Callback().Update().Remove("orgscope:before_update")
	_ = db.Callback().Delete().Remove("orgscope:before_delete")
	_ = db.Callback().Create().Remove("orgscope:before_create")
}

func (oc *OrgCallback) beforeQuery(db *gorm.DB) {
	oc.addVisibilityFilter(db)
}

func (oc *OrgCallback) beforeUpdate(db *gorm.DB) {
	oc.addVisibilityFilter(db)
}

func (oc *OrgCallback) beforeDelete(db *gorm.DB) {
	oc.addVisibilityFilter(db)
}

// addVisibilityFilter applies the tenant context's visibility rule to the
// statement. Statements that already carry an organization condition (the
// explicit ForOrganization / ForPartner scopes) are left alone.
func (oc *OrgCallback) addVisibilityFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	if db.Statement.Unscoped {
		return
	}
	if !oc.hasOrgColumn(db) {
		return
	}
	if oc.hasOrgCondition(db) {
		return
	}

	tc := TenantFromContext(db.Statement.Context)

	switch tc.EffectiveRule() {
	case identity.VisibilityAll:
		return
	case identity.VisibilityPartner:
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{
				clause.Expr{SQL: partnerOwnedOrgs, Vars: []interface{}{tc.PartnerID()}},
			},
		})
	case identity.VisibilityOrganization:
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{
				clause.Eq{
					Column: clause.Column{Table: clause.CurrentTable, Name: orgColumn},
					Value:  tc.OrganizationID(),
				},
			},
		})
	default:
		// No affiliation means no rows, never all rows.
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{clause.Expr{SQL: "1 = 0"}},
		})
	}
}

// beforeCreate assigns the caller's organization to new rows that do not
// carry one yet. Rows created with no organization available fail instead
// of landing unscoped.
func (oc *OrgCallback) beforeCreate(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Schema == nil {
		return
	}

	field := db.Statement.Schema.LookUpField(orgColumn)
	if field == nil {
		return
	}

	tc := TenantFromContext(db.Statement.Context)

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			rv := db.Statement.ReflectValue.Index(i)
			if _, zero := field.ValueOf(db.Statement.Context, rv); zero {
				if tc.OrganizationID() == 0 {
					_ = db.AddError(ErrOrganizationRequired)
					return
				}
				_ = field.Set(db.Statement.Context, rv, tc.OrganizationID())
			}
		}
	case reflect.Struct:
		rv := db.Statement.ReflectValue
		if _, zero := field.ValueOf(db.Statement.Context, rv); zero {
			if tc.OrganizationID() == 0 {
				_ = db.AddError(ErrOrganizationRequired)
				return
			}
			_ = field.Set(db.Statement.Context, rv, tc.OrganizationID())
		}
	}
}

// hasOrgColumn reports whether the statement's model carries the
// organization column. Global tables (organizations themselves, permission
// groups) are not row-isolated.
func (oc *OrgCallback) hasOrgColumn(db *gorm.DB) bool {
	if db.Statement.Schema != nil {
		return db.Statement.Schema.LookUpField(orgColumn) != nil
	}
	// Raw statements without a parsed schema are filtered anyway.
	return true
}

// hasOrgCondition checks if an organization condition is already present
func (oc *OrgCallback) hasOrgCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if oc.exprContainsOrg(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	return sql != "" && strings.Contains(sql, orgColumn)
}

// exprContainsOrg checks if an expression references the organization column
func (oc *OrgCallback) exprContainsOrg(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == orgColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == orgColumn
		}
	case clause.Expr:
		return strings.Contains(e.SQL, orgColumn)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if oc.exprContainsOrg(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if oc.exprContainsOrg(cond) {
				return true
			}
		}
	}
	return false
}

// EnableRowIsolation registers the automatic visibility callbacks on db
func EnableRowIsolation(db *gorm.DB) {
	NewOrgCallback().RegisterCallbacks(db)
}
