package identity

import (
	"strings"
	"time"

	"github.com/bizsuite/backend/internal/domain/shared"
)

// Organization is a tenant whose data must be isolated from other tenants.
// Organization ids are small integers because they participate in the
// store's session-context wire contract (0 = none).
type Organization struct {
	ID        int64
	PartnerID int64 // 0 when not managed by a partner
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrganization creates a new organization
func NewOrganization(name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION_NAME", "Organization name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION_NAME", "Organization name cannot exceed 200 characters")
	}
	now := time.Now()
	return &Organization{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AssignPartner moves the organization under a partner's management
func (o *Organization) AssignPartner(partnerID int64) error {
	if partnerID <= 0 {
		return shared.NewDomainError("INVALID_PARTNER_ID", "Partner id must be positive")
	}
	o.PartnerID = partnerID
	o.UpdatedAt = time.Now()
	return nil
}

// ReleasePartner removes partner management from the organization
func (o *Organization) ReleasePartner() {
	o.PartnerID = 0
	o.UpdatedAt = time.Now()
}

// IsOwnedBy reports whether the given partner manages this organization
func (o *Organization) IsOwnedBy(partnerID int64) bool {
	return partnerID > 0 && o.PartnerID == partnerID
}
