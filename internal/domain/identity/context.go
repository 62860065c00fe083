package identity

// VisibilityRule is the effective row-visibility rule derived from a TenantContext
type VisibilityRule int

const (
	// VisibilityNone yields an empty result set, never "all rows"
	VisibilityNone VisibilityRule = iota
	// VisibilityOrganization restricts to a single organization
	VisibilityOrganization
	// VisibilityPartner restricts to all organizations owned by a partner,
	// resolved by a live lookup at query time
	VisibilityPartner
	// VisibilityAll bypasses row isolation (platform admin only)
	VisibilityAll
)

// TenantContext is the immutable per-request tenancy value.
// It is constructed once per request after authentication succeeds,
// discarded at response completion, and never persisted.
//
// Partner visibility is deliberately not cached here: the set of
// organizations a partner owns is resolved live so that concurrent
// membership changes are reflected on the next read.
type TenantContext struct {
	organizationID  int64
	partnerID       int64
	isPlatformAdmin bool
}

// EmptyTenantContext returns the maximally restrictive context
// (organizationID=0, partnerID=0, isPlatformAdmin=false). Any data access
// under it yields zero visibility rather than undefined behavior.
func EmptyTenantContext() TenantContext {
	return TenantContext{}
}

// NewTenantContext creates a tenant context from raw tenancy values.
// Negative ids are clamped to 0 (none).
func NewTenantContext(organizationID, partnerID int64, isPlatformAdmin bool) TenantContext {
	if organizationID < 0 {
		organizationID = 0
	}
	if partnerID < 0 {
		partnerID = 0
	}
	return TenantContext{
		organizationID:  organizationID,
		partnerID:       partnerID,
		isPlatformAdmin: isPlatformAdmin,
	}
}

// OrganizationID returns the organization id, 0 when none
func (tc TenantContext) OrganizationID() int64 {
	return tc.organizationID
}

// PartnerID returns the partner id, 0 when none
func (tc TenantContext) PartnerID() int64 {
	return tc.partnerID
}

// IsPlatformAdmin reports whether the context is exempt from row isolation
func (tc TenantContext) IsPlatformAdmin() bool {
	return tc.isPlatformAdmin
}

// IsZero reports whether the context grants no visibility at all
func (tc TenantContext) IsZero() bool {
	return !tc.isPlatformAdmin && tc.organizationID == 0 && tc.partnerID == 0
}

// EffectiveRule resolves which single visibility rule governs this context.
// Precedence: platform admin, then partner, then organization.
func (tc TenantContext) EffectiveRule() VisibilityRule {
	switch {
	case tc.isPlatformAdmin:
		return VisibilityAll
	case tc.partnerID > 0:
		return VisibilityPartner
	case tc.organizationID > 0:
		return VisibilityOrganization
	default:
		return VisibilityNone
	}
}
