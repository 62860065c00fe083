// Package orgscope provides organization-level row isolation for GORM.
//
// It is the application-side enforcement path, active when the store's
// row-level policies are disabled. Every query is filtered by the caller's
// tenant context: platform admins see everything, partner users see rows
// of organizations currently owned by their partner, organization users
// see their own organization's rows, and callers with no affiliation see
// nothing at all.
//
// Usage:
//
//	db := orgscope.NewOrgDB(gormDB)
//	scopedDB := db.WithContext(ctx) // applies the visibility filter
//	scopedDB.Find(&contacts)
package orgscope

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

// ErrOrganizationRequired is returned when a row is created without an
// organization and the caller's context cannot supply one.
var ErrOrganizationRequired = errors.New("organization_id is required but not found in context")

// partnerOwnedOrgs is the live ownership subquery. Evaluated per statement
// so a reassigned organization drops out of partner visibility immediately,
// with no cache to invalidate.
const partnerOwnedOrgs = "organization_id IN (SELECT id FROM organizations WHERE partner_id = ?)"

// VisibilityScope filters rows according to the tenant context's effective
// visibility rule. The same predicate decides both list filtering and
// single-record accessibility, so the two can never disagree.
func VisibilityScope(tc identity.TenantContext) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch tc.EffectiveRule() {
		case identity.VisibilityAll:
			return db
		case identity.VisibilityPartner:
			return db.Where(partnerOwnedOrgs, tc.PartnerID())
		case identity.VisibilityOrganization:
			return db.Where("organization_id = ?", tc.OrganizationID())
		default:
			return db.Where("1 = 0")
		}
	}
}

// Accessible reports the predicate for checking whether a specific record
// is visible to the tenant context. It is the read filter itself.
func Accessible(tc identity.TenantContext) func(db *gorm.DB) *gorm.DB {
	return VisibilityScope(tc)
}

// ForOrganization pins a query to one organization regardless of the
// caller's context. Platform-admin code paths use this to act on a chosen
// tenant; combined with the callbacks it narrows rather than widens,
// because the explicit condition replaces the automatic one.
func ForOrganization(organizationID int64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", organizationID)
	}
}

// ForPartner pins a query to the organizations currently owned by a partner.
func ForPartner(partnerID int64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(partnerOwnedOrgs, partnerID)
	}
}

// TenantFromContext reconstructs the tenant context placed into the request
// context by the authentication middleware. A context that never passed
// through authentication yields the empty (fully restrictive) context.
func TenantFromContext(ctx context.Context) identity.TenantContext {
	if logger.GetPlatformAdmin(ctx) {
		return identity.NewTenantContext(logger.GetOrganizationID(ctx), logger.GetPartnerID(ctx), true)
	}
	return identity.NewTenantContext(logger.GetOrganizationID(ctx), logger.GetPartnerID(ctx), false)
}

// OrgDB wraps a GORM DB with automatic organization scoping
type OrgDB struct {
	db *gorm.DB
}

// NewOrgDB creates a new OrgDB
func NewOrgDB(db *gorm.DB) *OrgDB {
	return &OrgDB{db: db}
}

// DB returns the underlying GORM DB without scoping.
// Use with caution, this bypasses row isolation.
func (o *OrgDB) DB() *gorm.DB {
	return o.db
}

// WithContext returns a GORM DB scoped to the tenant context carried by ctx.
func (o *OrgDB) WithContext(ctx context.Context) *gorm.DB {
	return o.db.WithContext(ctx).Scopes(VisibilityScope(TenantFromContext(ctx)))
}

// WithTenant returns a GORM DB scoped to an explicit tenant context.
func (o *OrgDB) WithTenant(tc identity.TenantContext) *gorm.DB {
	return o.db.Scopes(VisibilityScope(tc))
}

// Transaction executes fn within a transaction scoped to the context's tenant.
func (o *OrgDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tc := TenantFromContext(ctx)
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx.Scopes(VisibilityScope(tc)))
	})
}

// Unscoped returns the underlying DB without any organization scoping.
// Only migrations and system-level maintenance should reach for this.
func (o *OrgDB) Unscoped() *gorm.DB {
	return o.db
}
