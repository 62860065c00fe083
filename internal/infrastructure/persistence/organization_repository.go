// Package persistence implements the domain repositories on GORM.
// Repositories run on the session-scoped transaction when one is carried
// by the context, so the store's row-level policies see the established
// session variables.
package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
)

// conn returns the session-scoped transaction from ctx when present,
// otherwise the shared handle.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := sessionctx.DBFromContext(ctx); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// GormOrganizationRepository implements OrganizationRepository using GORM.
// Organizations are a global table: they define the tenancy axis rather
// than being subject to it.
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by its id
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id int64) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all organizations
func (r *GormOrganizationRepository) FindAll(ctx context.Context) ([]*identity.Organization, error) {
	var orgModels []models.OrganizationModel
	if err := conn(ctx, r.db).Order("id").Find(&orgModels).Error; err != nil {
		return nil, err
	}

	orgs := make([]*identity.Organization, len(orgModels))
	for i := range orgModels {
		orgs[i] = orgModels[i].ToDomain()
	}
	return orgs, nil
}

// Save persists an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	model := models.OrganizationModelFromDomain(org)
	if err := conn(ctx, r.db).Save(model).Error; err != nil {
		return err
	}
	// Propagate the generated id back on first save.
	org.ID = model.ID
	return nil
}

// IDsOwnedByPartner resolves the live set of organization ids managed by a
// partner. Queried fresh every time; ownership changes take effect on the
// next request with no cache to chase.
func (r *GormOrganizationRepository) IDsOwnedByPartner(ctx context.Context, partnerID int64) ([]int64, error) {
	var ids []int64
	err := conn(ctx, r.db).
		Model(&models.OrganizationModel{}).
		Where("partner_id = ?", partnerID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PartnerOwns reports whether a partner currently manages an organization
func (r *GormOrganizationRepository) PartnerOwns(ctx context.Context, partnerID, organizationID int64) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.OrganizationModel{}).
		Where("id = ? AND partner_id = ?", organizationID, partnerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ identity.OrganizationRepository = (*GormOrganizationRepository)(nil)
	_ identity.OwnershipLookup        = (*GormOrganizationRepository)(nil)
)
