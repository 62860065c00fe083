package identity

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationRepository provides access to organizations
type OrganizationRepository interface {
	FindByID(ctx context.Context, id int64) (*Organization, error)
	FindAll(ctx context.Context) ([]*Organization, error)
	Save(ctx context.Context, org *Organization) error

	// IDsOwnedByPartner resolves the live set of organization ids managed
	// by a partner. Callers must not cache the result across requests.
	IDsOwnedByPartner(ctx context.Context, partnerID int64) ([]int64, error)
}

// OwnershipLookup answers partner→organization ownership questions.
// It is the live lookup behind partner visibility; implementations must
// query current state rather than a snapshot.
type OwnershipLookup interface {
	PartnerOwns(ctx context.Context, partnerID, organizationID int64) (bool, error)
}

// GroupRepository provides access to permission groups
type GroupRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PermissionGroup, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*PermissionGroup, error)
	FindByCode(ctx context.Context, code string) (*PermissionGroup, error)
	FindAll(ctx context.Context) ([]*PermissionGroup, error)
	Save(ctx context.Context, group *PermissionGroup) error
	Delete(ctx context.Context, id uuid.UUID) error
}
