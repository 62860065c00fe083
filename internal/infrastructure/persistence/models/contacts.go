package models

import (
	"github.com/google/uuid"

	"github.com/bizsuite/backend/internal/domain/contacts"
)

// ContactModel persists contacts. Extension field values contributed by
// other modules live in the extensions document; the base module stores
// them opaquely.
type ContactModel struct {
	OrgAggregateModel
	Name       string         `gorm:"size:200;not null;index"`
	Email      string         `gorm:"size:200;index"`
	Phone      string         `gorm:"size:50"`
	IsCompany  bool           `gorm:"not null;default:false"`
	CompanyID  *uuid.UUID     `gorm:"type:uuid;index"`
	Company    *ContactModel  `gorm:"foreignKey:CompanyID"`
	Extensions map[string]any `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for contacts
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the model to a domain contact
func (m *ContactModel) ToDomain() *contacts.Contact {
	contact := &contacts.Contact{
		OrgAggregateRoot: m.ToDomainOrgAggregateRoot(),
		Name:             m.Name,
		Email:            m.Email,
		Phone:            m.Phone,
		IsCompany:        m.IsCompany,
		CompanyID:        m.CompanyID,
		Extensions:       m.Extensions,
	}
	if contact.Extensions == nil {
		contact.Extensions = make(map[string]any)
	}
	if m.Company != nil {
		contact.Company = m.Company.ToDomain()
	}
	return contact
}

// ContactModelFromDomain converts a domain contact to its model
func ContactModelFromDomain(contact *contacts.Contact) *ContactModel {
	model := &ContactModel{
		Name:       contact.Name,
		Email:      contact.Email,
		Phone:      contact.Phone,
		IsCompany:  contact.IsCompany,
		CompanyID:  contact.CompanyID,
		Extensions: contact.Extensions,
	}
	model.FromDomainOrgAggregateRoot(contact.OrgAggregateRoot)
	return model
}
