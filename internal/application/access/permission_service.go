// Package access implements type-level permission checks. Row visibility is
// enforced separately by the persistence layer; a caller can hold a grant
// for an entity type and still see none of its rows.
package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/infrastructure/cache"
)

const groupCacheTTL = 60 * time.Second

// PermissionService answers "may this principal perform this operation on
// this entity type". It never returns an error: any failure to resolve the
// principal's groups is a deny.
type PermissionService struct {
	groupRepo identity.GroupRepository
	cache     cache.GroupCache
	logger    *zap.Logger
}

// NewPermissionService creates a new permission service
func NewPermissionService(
	groupRepo identity.GroupRepository,
	groupCache cache.GroupCache,
	logger *zap.Logger,
) *PermissionService {
	return &PermissionService{
		groupRepo: groupRepo,
		cache:     groupCache,
		logger:    logger,
	}
}

// CheckModelAccess evaluates type-level access for a principal. Platform
// admins pass unconditionally; everyone else needs at least one enabled
// group granting the (entity, operation) pair. Denials are logged at debug
// level only, this runs on every request.
func (s *PermissionService) CheckModelAccess(ctx context.Context, principal identity.Principal, entity string, op identity.Operation) bool {
	if principal.IsPlatformAdmin {
		return true
	}

	if err := identity.ValidateEntityName(entity); err != nil {
		s.logger.Debug("access denied: invalid entity name",
			zap.String("entity", entity),
			zap.String("operation", string(op)))
		return false
	}

	if len(principal.GroupIDs) == 0 {
		s.logger.Debug("access denied: principal has no groups",
			zap.String("user_id", principal.UserID.String()),
			zap.String("entity", entity),
			zap.String("operation", string(op)))
		return false
	}

	groups, err := s.loadGroups(ctx, principal.GroupIDs)
	if err != nil {
		s.logger.Debug("access denied: failed to resolve groups",
			zap.String("user_id", principal.UserID.String()),
			zap.String("entity", entity),
			zap.String("operation", string(op)),
			zap.Error(err))
		return false
	}

	for _, group := range groups {
		if group.Allows(entity, op) {
			return true
		}
	}

	s.logger.Debug("access denied: no group grants operation",
		zap.String("user_id", principal.UserID.String()),
		zap.String("entity", entity),
		zap.String("operation", string(op)),
		zap.Int("groups_checked", len(groups)))
	return false
}

// loadGroups resolves groups through the cache, falling back to the store
// for misses. Unknown ids are skipped: a dangling group reference on a
// principal denies rather than errors.
func (s *PermissionService) loadGroups(ctx context.Context, ids []uuid.UUID) ([]*identity.PermissionGroup, error) {
	groups := make([]*identity.PermissionGroup, 0, len(ids))
	var missing []uuid.UUID

	for _, id := range ids {
		group, err := s.cache.Get(ctx, id)
		if err != nil || group == nil {
			missing = append(missing, id)
			continue
		}
		groups = append(groups, group)
	}

	if len(missing) == 0 {
		return groups, nil
	}

	fetched, err := s.groupRepo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, group := range fetched {
		_ = s.cache.Set(ctx, group, groupCacheTTL)
		groups = append(groups, group)
	}

	return groups, nil
}
