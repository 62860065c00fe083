package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
)

type fakeOrgRepo struct {
	orgs   map[int64]*identity.Organization
	nextID int64
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[int64]*identity.Organization), nextID: 1}
}

func (r *fakeOrgRepo) FindByID(_ context.Context, id int64) (*identity.Organization, error) {
	if org, ok := r.orgs[id]; ok {
		copied := *org
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrgRepo) FindAll(_ context.Context) ([]*identity.Organization, error) {
	all := make([]*identity.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		copied := *org
		all = append(all, &copied)
	}
	return all, nil
}

func (r *fakeOrgRepo) Save(_ context.Context, org *identity.Organization) error {
	if org.ID == 0 {
		org.ID = r.nextID
		r.nextID++
	}
	copied := *org
	r.orgs[org.ID] = &copied
	return nil
}

func (r *fakeOrgRepo) IDsOwnedByPartner(_ context.Context, partnerID int64) ([]int64, error) {
	var ids []int64
	for id, org := range r.orgs {
		if org.PartnerID == partnerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func TestOrganizationServiceCreate(t *testing.T) {
	svc := NewOrganizationService(newFakeOrgRepo(), zap.NewNop())

	t.Run("creates an unmanaged organization", func(t *testing.T) {
		org, err := svc.Create(context.Background(), CreateOrganizationInput{Name: "Acme"})
		require.NoError(t, err)
		assert.NotZero(t, org.ID)
		assert.Zero(t, org.PartnerID)
		assert.True(t, org.IsActive)
	})

	t.Run("creates under a partner", func(t *testing.T) {
		org, err := svc.Create(context.Background(), CreateOrganizationInput{Name: "Managed", PartnerID: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(7), org.PartnerID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateOrganizationInput{Name: "  "})
		assert.Error(t, err)
	})
}

func TestOrganizationServicePartnerOwnership(t *testing.T) {
	repo := newFakeOrgRepo()
	svc := NewOrganizationService(repo, zap.NewNop())

	org, err := svc.Create(context.Background(), CreateOrganizationInput{Name: "Acme"})
	require.NoError(t, err)

	t.Run("assignment is visible on the next ownership read", func(t *testing.T) {
		before, err := repo.IDsOwnedByPartner(context.Background(), 7)
		require.NoError(t, err)
		assert.Empty(t, before)

		updated, err := svc.AssignPartner(context.Background(), org.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), updated.PartnerID)

		after, err := repo.IDsOwnedByPartner(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, []int64{org.ID}, after)
	})

	t.Run("release removes ownership", func(t *testing.T) {
		updated, err := svc.ReleasePartner(context.Background(), org.ID)
		require.NoError(t, err)
		assert.Zero(t, updated.PartnerID)

		after, err := repo.IDsOwnedByPartner(context.Background(), 7)
		require.NoError(t, err)
		assert.Empty(t, after)
	})

	t.Run("invalid partner id is rejected", func(t *testing.T) {
		_, err := svc.AssignPartner(context.Background(), org.ID, 0)
		assert.Error(t, err)
	})

	t.Run("missing organization maps to not found", func(t *testing.T) {
		_, err := svc.AssignPartner(context.Background(), 9999, 7)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOrganizationServiceSetActive(t *testing.T) {
	svc := NewOrganizationService(newFakeOrgRepo(), zap.NewNop())

	org, err := svc.Create(context.Background(), CreateOrganizationInput{Name: "Acme"})
	require.NoError(t, err)

	updated, err := svc.SetActive(context.Background(), org.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}
