package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
)

// nativeContactScopes are the scopes owned by the contacts module itself.
// Extension-contributed scopes are looked up in the registry under the
// same names; the registry guarantees no collisions.
var nativeContactScopes = map[string]func(db *gorm.DB) *gorm.DB{
	"companies": func(db *gorm.DB) *gorm.DB {
		return db.Where("is_company = ?", true)
	},
	"people": func(db *gorm.DB) *gorm.DB {
		return db.Where("is_company = ?", false)
	},
}

// GormContactRepository implements the contact repository using GORM.
// Row isolation is applied outside: by the store's row-level policies or
// by the registered callbacks, whichever enforcement path is active. A
// contact outside the caller's visibility is indistinguishable from a
// missing one.
type GormContactRepository struct {
	db       *gorm.DB
	registry *extension.Registry
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB, registry *extension.Registry) *GormContactRepository {
	return &GormContactRepository{db: db, registry: registry}
}

// FindByID finds a contact by id within the caller's visibility
func (r *GormContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*contacts.Contact, error) {
	var model models.ContactModel
	err := conn(ctx, r.db).Preload("Company").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds contacts matching the filter within the caller's
// visibility, returning the page and the total match count.
func (r *GormContactRepository) FindAll(ctx context.Context, filter contacts.ListFilter) ([]*contacts.Contact, int64, error) {
	query := conn(ctx, r.db).Model(&models.ContactModel{})

	if filter.Scope != "" {
		scoped, err := r.applyScope(query, filter.Scope)
		if err != nil {
			return nil, 0, err
		}
		query = scoped
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var contactModels []models.ContactModel
	if err := query.Order("name").Find(&contactModels).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*contacts.Contact, len(contactModels))
	for i := range contactModels {
		result[i] = contactModels[i].ToDomain()
	}
	return result, total, nil
}

// applyScope resolves a scope name against the native scopes first, then
// the extension registry. Unknown scope names are an input error.
func (r *GormContactRepository) applyScope(query *gorm.DB, name string) (*gorm.DB, error) {
	if native, ok := nativeContactScopes[name]; ok {
		return native(query), nil
	}
	if r.registry != nil {
		if pred, ok := r.registry.ScopeFor(contacts.EntityContact, name); ok {
			return pred(query), nil
		}
	}
	return nil, shared.NewDomainError("UNKNOWN_SCOPE", "Unknown query scope: "+name)
}

// Save persists a contact
func (r *GormContactRepository) Save(ctx context.Context, contact *contacts.Contact) error {
	model := models.ContactModelFromDomain(contact)
	return conn(ctx, r.db).Omit("Company").Save(model).Error
}

// Delete removes a contact within the caller's visibility
func (r *GormContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.ContactModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ contacts.Repository = (*GormContactRepository)(nil)
