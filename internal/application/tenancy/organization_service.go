// Package tenancy manages organizations and their partner ownership.
// Ownership changes take effect on the next read: partner visibility is
// resolved live at query time, never cached per request.
package tenancy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
)

// OrganizationService orchestrates organization administration
type OrganizationService struct {
	repo   identity.OrganizationRepository
	logger *zap.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(repo identity.OrganizationRepository, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{repo: repo, logger: logger}
}

// CreateOrganizationInput carries the fields for creating an organization
type CreateOrganizationInput struct {
	Name      string `json:"name" binding:"required"`
	PartnerID int64  `json:"partnerId"`
}

// OrganizationDTO is the outward representation of an organization
type OrganizationDTO struct {
	ID        int64     `json:"id"`
	PartnerID int64     `json:"partner_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toOrganizationDTO(org *identity.Organization) *OrganizationDTO {
	return &OrganizationDTO{
		ID:        org.ID,
		PartnerID: org.PartnerID,
		Name:      org.Name,
		IsActive:  org.IsActive,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

// Create registers a new organization, optionally under a partner
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*OrganizationDTO, error) {
	org, err := identity.NewOrganization(input.Name)
	if err != nil {
		return nil, err
	}
	if input.PartnerID > 0 {
		if err := org.AssignPartner(input.PartnerID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, org); err != nil {
		return nil, err
	}

	s.logger.Info("organization created",
		zap.Int64("organization_id", org.ID),
		zap.Int64("partner_id", org.PartnerID))
	return toOrganizationDTO(org), nil
}

// Get returns one organization
func (s *OrganizationService) Get(ctx context.Context, id int64) (*OrganizationDTO, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return toOrganizationDTO(org), nil
}

// List returns all organizations
func (s *OrganizationService) List(ctx context.Context) ([]*OrganizationDTO, error) {
	orgs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*OrganizationDTO, len(orgs))
	for i, org := range orgs {
		result[i] = toOrganizationDTO(org)
	}
	return result, nil
}

// AssignPartner moves an organization under a partner. The partner sees
// the organization's rows on their next query.
func (s *OrganizationService) AssignPartner(ctx context.Context, id, partnerID int64) (*OrganizationDTO, error) {
	return s.mutate(ctx, id, func(org *identity.Organization) error {
		return org.AssignPartner(partnerID)
	})
}

// ReleasePartner removes partner management from an organization
func (s *OrganizationService) ReleasePartner(ctx context.Context, id int64) (*OrganizationDTO, error) {
	return s.mutate(ctx, id, func(org *identity.Organization) error {
		org.ReleasePartner()
		return nil
	})
}

// SetActive enables or disables an organization
func (s *OrganizationService) SetActive(ctx context.Context, id int64, active bool) (*OrganizationDTO, error) {
	return s.mutate(ctx, id, func(org *identity.Organization) error {
		org.IsActive = active
		org.UpdatedAt = time.Now()
		return nil
	})
}

func (s *OrganizationService) mutate(ctx context.Context, id int64, fn func(*identity.Organization) error) (*OrganizationDTO, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := fn(org); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, org); err != nil {
		return nil, err
	}
	return toOrganizationDTO(org), nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
