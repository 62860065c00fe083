// Package plugin ships the extension contracts bundled with the platform.
// Each plugin extends a base entity it does not own through the extension
// registry; the owning module never imports this package.
package plugin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
)

// paymentTermsModel is the payment terms catalogue owned by this plugin
type paymentTermsModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID int64     `gorm:"not null;index"`
	Code           string    `gorm:"size:32;not null"`
	Name           string    `gorm:"size:100;not null"`
	NetDays        int       `gorm:"not null;default:0"`
}

func (paymentTermsModel) TableName() string {
	return "contact_payment_terms"
}

// creditEntryModel is an open receivable tracked against a contact
type creditEntryModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrganizationID int64           `gorm:"not null;index"`
	ContactID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate        time.Time       `gorm:"not null"`
	Settled        bool            `gorm:"not null;default:false"`
}

func (creditEntryModel) TableName() string {
	return "contact_credit_entries"
}

// CreditControlPlugin grafts credit management onto contacts: a stored
// credit limit and payment terms reference, a live outstanding balance,
// and an "overdue" query scope. The contacts module knows nothing of it.
type CreditControlPlugin struct {
	db *gorm.DB
}

// NewCreditControlPlugin creates a new credit control plugin
func NewCreditControlPlugin(db *gorm.DB) *CreditControlPlugin {
	return &CreditControlPlugin{db: db}
}

// Name returns the unique identifier for the plugin
func (p *CreditControlPlugin) Name() string {
	return "creditcontrol"
}

// DisplayName returns the human-readable name for the plugin
func (p *CreditControlPlugin) DisplayName() string {
	return "Credit Control"
}

// Descriptors returns the plugin's contributions to contacts.contact
func (p *CreditControlPlugin) Descriptors() []extension.Descriptor {
	return []extension.Descriptor{
		{
			Target: contacts.EntityContact,
			Fields: map[string]extension.FieldDef{
				"credit_limit":       extension.DecimalField(12, 2),
				"payment_terms_code": extension.StringField(32),
			},
			Relations: map[string]extension.RelationLoader{
				"payment_terms": p.loadPaymentTerms,
			},
			Computed: map[string]extension.ComputedFunc{
				"outstanding_balance": p.outstandingBalance,
			},
			Scopes: map[string]extension.ScopePredicate{
				"overdue": overdueScope,
			},
			Validation: map[string]string{
				"credit_limit":       "omitempty,numeric,gte=0",
				"payment_terms_code": "omitempty,alphanum,max=32",
			},
		},
	}
}

// loadPaymentTerms resolves the contact's payment_terms_code against the
// per-organization terms catalogue. Row isolation on the catalogue table
// keeps lookups inside the caller's visibility.
func (p *CreditControlPlugin) loadPaymentTerms(ctx context.Context, entity extension.Extendable) (any, error) {
	stored, _ := entity.ExtensionValue("payment_terms_code")
	code, _ := stored.(string)
	if code == "" {
		return nil, nil
	}

	var terms paymentTermsModel
	err := p.conn(ctx).Where("code = ?", code).First(&terms).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return map[string]any{
		"code":     terms.Code,
		"name":     terms.Name,
		"net_days": terms.NetDays,
	}, nil
}

// outstandingBalance sums the contact's unsettled credit entries
func (p *CreditControlPlugin) outstandingBalance(ctx context.Context, entity extension.Extendable) (any, error) {
	id, ok := entity.Attributes()["id"].(uuid.UUID)
	if !ok {
		return decimal.Zero, nil
	}

	var total decimal.Decimal
	row := p.conn(ctx).Model(&creditEntryModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("contact_id = ? AND settled = ?", id, false).
		Row()
	if err := row.Scan(&total); err != nil {
		return nil, err
	}
	return total, nil
}

// overdueScope narrows contacts to those with an unsettled entry past due
func overdueScope(db *gorm.DB) *gorm.DB {
	return db.Where("id IN (SELECT contact_id FROM contact_credit_entries WHERE settled = ? AND due_date < NOW())", false)
}

// conn prefers a session-pinned transaction when the request carries one
func (p *CreditControlPlugin) conn(ctx context.Context) *gorm.DB {
	if tx, ok := sessionctx.DBFromContext(ctx); ok {
		return tx
	}
	return p.db.WithContext(ctx)
}

var _ extension.Contract = (*CreditControlPlugin)(nil)
