package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewTenantContextClampsNegativeIDs(t *testing.T) {
	tc := NewTenantContext(-5, -1, false)

	assert.Equal(t, int64(0), tc.OrganizationID())
	assert.Equal(t, int64(0), tc.PartnerID())
	assert.True(t, tc.IsZero())
}

func TestEmptyTenantContext(t *testing.T) {
	tc := EmptyTenantContext()

	assert.True(t, tc.IsZero())
	assert.False(t, tc.IsPlatformAdmin())
	assert.Equal(t, VisibilityNone, tc.EffectiveRule())
}

func TestEffectiveRulePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		orgID   int64
		partner int64
		admin   bool
		want    VisibilityRule
	}{
		{"admin wins over partner and org", 10, 20, true, VisibilityAll},
		{"admin with no tenancy", 0, 0, true, VisibilityAll},
		{"partner wins over org", 10, 20, false, VisibilityPartner},
		{"partner only", 0, 20, false, VisibilityPartner},
		{"organization only", 10, 0, false, VisibilityOrganization},
		{"no tenancy at all", 0, 0, false, VisibilityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := NewTenantContext(tt.orgID, tt.partner, tt.admin)
			assert.Equal(t, tt.want, tc.EffectiveRule())
		})
	}
}

func TestIsZeroIgnoresNothing(t *testing.T) {
	assert.False(t, NewTenantContext(1, 0, false).IsZero())
	assert.False(t, NewTenantContext(0, 1, false).IsZero())
	assert.False(t, NewTenantContext(0, 0, true).IsZero())
}

func TestPrincipalTenantContext(t *testing.T) {
	p := Principal{
		UserID:         uuid.New(),
		Username:       "alice",
		OrganizationID: 42,
		PartnerID:      7,
	}

	tc := p.TenantContext()
	assert.Equal(t, int64(42), tc.OrganizationID())
	assert.Equal(t, int64(7), tc.PartnerID())
	assert.False(t, tc.IsPlatformAdmin())
	assert.False(t, p.IsAnonymous())
}

func TestAnonymousPrincipal(t *testing.T) {
	p := AnonymousPrincipal()

	assert.True(t, p.IsAnonymous())
	assert.True(t, p.TenantContext().IsZero())
	assert.Equal(t, VisibilityNone, p.TenantContext().EffectiveRule())
}
