// Package contact exposes the contacts module as application-level use
// cases: listing with scopes and includes, projection of extension
// attributes, and write validation against the effective rule set.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

// baseRules are the contact's own write-validation rules. Extension rules
// merge on top; the registry guarantees extensions cannot collide with
// each other, and MergeRules rejects collisions with these.
var baseRules = map[string]string{
	"email": "omitempty,email",
	"phone": "omitempty,max=50",
}

// RecordAccess is the per-record accessibility check layered on top of
// type-level grants and row isolation. A nil checker skips the layer.
type RecordAccess interface {
	RecordAccessible(ctx context.Context, tc identity.TenantContext, recordOrgID int64) bool
}

// ContactService orchestrates contact use cases
type ContactService struct {
	repo      contacts.Repository
	registry  *extension.Registry
	projector *extension.Projector
	access    RecordAccess
	logger    *zap.Logger
}

// NewContactService creates a new ContactService
func NewContactService(repo contacts.Repository, registry *extension.Registry, access RecordAccess, log *zap.Logger) *ContactService {
	if log == nil {
		log = logger.L(context.Background())
	}
	return &ContactService{
		repo:      repo,
		registry:  registry,
		projector: extension.NewProjector(registry),
		access:    access,
		logger:    log,
	}
}

// checkRecord applies the per-record accessibility layer to a loaded
// contact. An inaccessible record behaves as if it does not exist.
func (s *ContactService) checkRecord(ctx context.Context, contact *contacts.Contact) error {
	if s.access == nil {
		return nil
	}
	tc := identity.NewTenantContext(
		logger.GetOrganizationID(ctx),
		logger.GetPartnerID(ctx),
		logger.GetPlatformAdmin(ctx),
	)
	if !s.access.RecordAccessible(ctx, tc, contact.OrganizationID) {
		return shared.ErrNotFound
	}
	return nil
}

// ListQuery narrows and shapes a contact listing
type ListQuery struct {
	Scope    string
	Search   string
	Includes []string
	Strict   bool
	Limit    int
	Offset   int
}

// CreateContactInput carries the fields for creating a contact
type CreateContactInput struct {
	Name       string         `json:"name" binding:"required"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	IsCompany  bool           `json:"isCompany"`
	CompanyID  *uuid.UUID     `json:"companyId"`
	Extensions map[string]any `json:"extensions"`
}

// UpdateContactInput carries the fields for updating a contact
type UpdateContactInput struct {
	Name       string         `json:"name" binding:"required"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	IsCompany  bool           `json:"isCompany"`
	CompanyID  *uuid.UUID     `json:"companyId"`
	Extensions map[string]any `json:"extensions"`
}

// List returns projected contacts matching the query plus the total count
func (s *ContactService) List(ctx context.Context, query ListQuery) ([]map[string]any, int64, error) {
	if query.Limit <= 0 || query.Limit > 200 {
		query.Limit = 50
	}

	found, total, err := s.repo.FindAll(ctx, contacts.ListFilter{
		Scope:  query.Scope,
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	opts := extension.ProjectOptions{Strict: query.Strict}
	projected := make([]map[string]any, len(found))
	for i, c := range found {
		projection, err := s.projector.Project(ctx, c, query.Includes, opts)
		if err != nil {
			return nil, 0, err
		}
		projected[i] = projection
	}
	return projected, total, nil
}

// Get returns one projected contact
func (s *ContactService) Get(ctx context.Context, id uuid.UUID, includes []string, strict bool) (map[string]any, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRecord(ctx, contact); err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, contact, includes, extension.ProjectOptions{Strict: strict})
}

// Create validates and persists a new contact owned by the caller's
// organization
func (s *ContactService) Create(ctx context.Context, input CreateContactInput) (map[string]any, error) {
	contact, err := contacts.NewContact(logger.GetOrganizationID(ctx), input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(contact, input.Name, input.Email, input.Phone, input.IsCompany, input.CompanyID, input.Extensions); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact created",
		zap.String("contact_id", contact.ID.String()),
		zap.Int64("organization_id", contact.OrganizationID))
	return s.projector.Project(ctx, contact, writtenIncludes(input.Extensions), extension.ProjectOptions{})
}

// Update validates and persists changes to an existing contact
func (s *ContactService) Update(ctx context.Context, id uuid.UUID, input UpdateContactInput) (map[string]any, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRecord(ctx, contact); err != nil {
		return nil, err
	}
	if err := s.applyInput(contact, input.Name, input.Email, input.Phone, input.IsCompany, input.CompanyID, input.Extensions); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, contact); err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, contact, writtenIncludes(input.Extensions), extension.ProjectOptions{})
}

// writtenIncludes echoes just-written extension fields back in the write
// response; reads keep them include-gated.
func writtenIncludes(extensions map[string]any) []string {
	if len(extensions) == 0 {
		return nil
	}
	includes := make([]string, 0, len(extensions))
	for field := range extensions {
		includes = append(includes, field)
	}
	return includes
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// applyInput performs the shared write path: base field update, extension
// field acceptance, and validation against the effective rule set.
func (s *ContactService) applyInput(contact *contacts.Contact, name, email, phone string, isCompany bool, companyID *uuid.UUID, extensions map[string]any) error {
	if err := contact.UpdateDetails(name, email, phone, isCompany); err != nil {
		return err
	}
	if companyID != nil {
		contact.AssignCompany(*companyID)
	}

	if err := s.applyExtensions(contact, extensions); err != nil {
		return err
	}

	rules, err := extension.MergeRules(baseRules, s.registry.ValidationFor(contacts.EntityContact))
	if err != nil {
		return shared.NewConfigurationError("contact validation", err.Error())
	}
	attrs := contact.Attributes()
	for field, value := range contact.Extensions {
		attrs[field] = value
	}
	if violations := extension.ValidateWrite(attrs, rules); len(violations) > 0 {
		messages := make([]string, len(violations))
		for i, v := range violations {
			messages[i] = v.Error()
		}
		return shared.NewDomainError("VALIDATION_FAILED", strings.Join(messages, "; "))
	}
	return nil
}

// applyExtensions accepts only field names some registered extension has
// declared on contacts; stray keys are rejected instead of silently stored.
func (s *ContactService) applyExtensions(contact *contacts.Contact, extensions map[string]any) error {
	if len(extensions) == 0 {
		return nil
	}

	declared := make(map[string]struct{})
	for _, desc := range s.registry.DescriptorsFor(contacts.EntityContact) {
		for field := range desc.Fields {
			declared[field] = struct{}{}
		}
	}

	for field, value := range extensions {
		if _, ok := declared[field]; !ok {
			return shared.NewDomainError("UNKNOWN_EXTENSION_FIELD", "No registered extension declares field: "+field)
		}
		contact.SetExtension(field, value)
	}
	contact.UpdatedAt = time.Now()
	return nil
}
