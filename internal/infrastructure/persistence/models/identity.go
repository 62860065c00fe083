package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizsuite/backend/internal/domain/identity"
)

// OrganizationModel persists organizations. Organizations use numeric ids:
// they are the tenancy axis and appear in session variables and policies,
// where a compact integer beats a uuid.
type OrganizationModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	PartnerID int64     `gorm:"not null;default:0;index"`
	Name      string    `gorm:"size:200;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for organizations
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the model to a domain organization
func (m *OrganizationModel) ToDomain() *identity.Organization {
	return &identity.Organization{
		ID:        m.ID,
		PartnerID: m.PartnerID,
		Name:      m.Name,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// OrganizationModelFromDomain converts a domain organization to its model
func OrganizationModelFromDomain(org *identity.Organization) *OrganizationModel {
	return &OrganizationModel{
		ID:        org.ID,
		PartnerID: org.PartnerID,
		Name:      org.Name,
		IsActive:  org.IsActive,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

// PermissionGroupModel persists permission groups
type PermissionGroupModel struct {
	AggregateModel
	Code      string            `gorm:"size:50;not null;uniqueIndex"`
	Name      string            `gorm:"size:200;not null"`
	IsEnabled bool              `gorm:"not null;default:true"`
	Grants    []GroupGrantModel `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for permission groups
func (PermissionGroupModel) TableName() string {
	return "permission_groups"
}

// GroupGrantModel persists a single (entity, operation) grant of a group
type GroupGrantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	GroupID   uuid.UUID `gorm:"type:uuid;not null;index:idx_group_grants,unique"`
	Entity    string    `gorm:"size:100;not null;index:idx_group_grants,unique"`
	Operation string    `gorm:"size:10;not null;index:idx_group_grants,unique"`
}

// TableName returns the table name for group grants
func (GroupGrantModel) TableName() string {
	return "permission_group_grants"
}

// ToDomain converts the model to a domain permission group
func (m *PermissionGroupModel) ToDomain() *identity.PermissionGroup {
	grants := make([]identity.Grant, 0, len(m.Grants))
	for _, g := range m.Grants {
		grants = append(grants, identity.Grant{
			Entity:    g.Entity,
			Operation: identity.Operation(g.Operation),
		})
	}
	return &identity.PermissionGroup{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		IsEnabled:         m.IsEnabled,
		Grants:            grants,
	}
}

// PermissionGroupModelFromDomain converts a domain group to its model
func PermissionGroupModelFromDomain(group *identity.PermissionGroup) *PermissionGroupModel {
	model := &PermissionGroupModel{
		Code:      group.Code,
		Name:      group.Name,
		IsEnabled: group.IsEnabled,
	}
	model.FromDomainAggregateRoot(group.BaseAggregateRoot)

	model.Grants = make([]GroupGrantModel, 0, len(group.Grants))
	for _, g := range group.Grants {
		model.Grants = append(model.Grants, GroupGrantModel{
			ID:        uuid.New(),
			GroupID:   group.ID,
			Entity:    g.Entity,
			Operation: string(g.Operation),
		})
	}
	return model
}
