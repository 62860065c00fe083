package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
)

// GormGroupRepository implements GroupRepository using GORM. Permission
// groups are platform-global, not organization-scoped.
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository creates a new GormGroupRepository
func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

// FindByID finds a permission group by its id
func (r *GormGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.PermissionGroup, error) {
	var model models.PermissionGroupModel
	err := conn(ctx, r.db).Preload("Grants").First(&model, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds all permission groups matching the given ids. Unknown
// ids are silently absent from the result.
func (r *GormGroupRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.PermissionGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var groupModels []models.PermissionGroupModel
	err := conn(ctx, r.db).Preload("Grants").Where("id IN ?", ids).Find(&groupModels).Error
	if err != nil {
		return nil, err
	}

	groups := make([]*identity.PermissionGroup, len(groupModels))
	for i := range groupModels {
		groups[i] = groupModels[i].ToDomain()
	}
	return groups, nil
}

// FindByCode finds a permission group by its code
func (r *GormGroupRepository) FindByCode(ctx context.Context, code string) (*identity.PermissionGroup, error) {
	var model models.PermissionGroupModel
	err := conn(ctx, r.db).Preload("Grants").
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all permission groups
func (r *GormGroupRepository) FindAll(ctx context.Context) ([]*identity.PermissionGroup, error) {
	var groupModels []models.PermissionGroupModel
	err := conn(ctx, r.db).Preload("Grants").Order("code").Find(&groupModels).Error
	if err != nil {
		return nil, err
	}

	groups := make([]*identity.PermissionGroup, len(groupModels))
	for i := range groupModels {
		groups[i] = groupModels[i].ToDomain()
	}
	return groups, nil
}

// Save persists a permission group and replaces its grants
func (r *GormGroupRepository) Save(ctx context.Context, group *identity.PermissionGroup) error {
	model := models.PermissionGroupModelFromDomain(group)
	grants := model.Grants
	model.Grants = nil

	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Grants").Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", model.ID).Delete(&models.GroupGrantModel{}).Error; err != nil {
			return err
		}
		if len(grants) > 0 {
			if err := tx.Create(&grants).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a permission group and its grants
func (r *GormGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupGrantModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.PermissionGroupModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

var _ identity.GroupRepository = (*GormGroupRepository)(nil)
