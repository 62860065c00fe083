package identity

import "github.com/google/uuid"

// Principal is the authenticated caller as produced by the authentication
// collaborator. This core never authenticates; it only consumes the result.
type Principal struct {
	UserID          uuid.UUID
	Username        string
	OrganizationID  int64
	PartnerID       int64
	IsPlatformAdmin bool
	GroupIDs        []uuid.UUID
}

// AnonymousPrincipal represents an unauthenticated caller. Its tenant
// context is fully restrictive, so an accidental bypass of the
// authentication gate still yields zero visibility.
func AnonymousPrincipal() Principal {
	return Principal{}
}

// IsAnonymous reports whether the principal carries no identity
func (p Principal) IsAnonymous() bool {
	return p.UserID == uuid.Nil
}

// TenantContext derives the per-request tenancy value from the principal
func (p Principal) TenantContext() TenantContext {
	return NewTenantContext(p.OrganizationID, p.PartnerID, p.IsPlatformAdmin)
}
