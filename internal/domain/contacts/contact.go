// Package contacts is the base module owning the contact entity. Other
// modules extend it through the extension registry without this package
// knowing about them.
package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/shared"
)

// EntityContact is the registry target name for contacts
const EntityContact = "contacts.contact"

// Contact is an organization-scoped person or company record
type Contact struct {
	shared.OrgAggregateRoot
	Name      string
	Email     string
	Phone     string
	IsCompany bool

	// CompanyID links a person to their employing company contact
	CompanyID *uuid.UUID
	Company   *Contact

	// Extensions holds values of storage fields contributed by other
	// modules. The owning module never interprets them.
	Extensions map[string]any
}

// NewContact creates a new contact owned by an organization
func NewContact(organizationID int64, name string) (*Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 200 characters")
	}

	return &Contact{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		Name:             name,
		Extensions:       make(map[string]any),
	}, nil
}

// UpdateDetails updates the contact's mutable base fields
func (c *Contact) UpdateDetails(name, email, phone string, isCompany bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && !strings.Contains(email, "@") {
		return shared.NewDomainError("INVALID_EMAIL", "Email format is invalid")
	}

	c.Name = name
	c.Email = email
	c.Phone = strings.TrimSpace(phone)
	c.IsCompany = isCompany
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// AssignCompany links the contact to an employing company
func (c *Contact) AssignCompany(companyID uuid.UUID) {
	c.CompanyID = &companyID
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// SetExtension stores a contributed field value
func (c *Contact) SetExtension(name string, value any) {
	if c.Extensions == nil {
		c.Extensions = make(map[string]any)
	}
	c.Extensions[name] = value
}

// EntityName implements extension.Extendable
func (c *Contact) EntityName() string {
	return EntityContact
}

// Attributes implements extension.Extendable. Only base attributes; stored
// extension values are exposed via ExtensionValue and projected on include.
func (c *Contact) Attributes() map[string]any {
	attrs := map[string]any{
		"id":              c.ID,
		"organization_id": c.OrganizationID,
		"name":            c.Name,
		"email":           c.Email,
		"phone":           c.Phone,
		"is_company":      c.IsCompany,
		"created_at":      c.CreatedAt,
		"updated_at":      c.UpdatedAt,
	}
	if c.CompanyID != nil {
		attrs["company_id"] = *c.CompanyID
	}
	return attrs
}

// ExtensionValue implements extension.Extendable
func (c *Contact) ExtensionValue(name string) (any, bool) {
	value, ok := c.Extensions[name]
	return value, ok
}

// Relation implements extension.Extendable. "company" is the only base
// relationship; it relies on the repository having preloaded it.
func (c *Contact) Relation(_ context.Context, name string) (any, bool, error) {
	switch name {
	case "company":
		if c.Company == nil {
			return nil, true, nil
		}
		return c.Company.Attributes(), true, nil
	default:
		return nil, false, nil
	}
}

var _ extension.Extendable = (*Contact)(nil)

// ListFilter narrows contact list queries
type ListFilter struct {
	// Scope names a native or extension-contributed query scope
	Scope  string
	Search string
	Limit  int
	Offset int
}

// Repository provides access to contacts. Implementations apply row
// isolation; a contact outside the caller's visibility behaves as if it
// does not exist.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*Contact, int64, error)
	Save(ctx context.Context, contact *Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}
