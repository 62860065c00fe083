package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/cache"
)

// GroupService handles permission group administration
type GroupService struct {
	groupRepo identity.GroupRepository
	cache     cache.GroupCache
	logger    *zap.Logger
}

// NewGroupService creates a new group service
func NewGroupService(
	groupRepo identity.GroupRepository,
	groupCache cache.GroupCache,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		cache:     groupCache,
		logger:    logger,
	}
}

// CreateGroupInput contains input for creating a permission group
type CreateGroupInput struct {
	Code string
	Name string
}

// GrantInput identifies a single (entity, operation) grant
type GrantInput struct {
	Entity    string
	Operation string
}

// GroupDTO represents permission group data returned to callers
type GroupDTO struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	IsEnabled bool       `json:"is_enabled"`
	Grants    []GrantDTO `json:"grants"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GrantDTO represents a single grant
type GrantDTO struct {
	Entity    string `json:"entity"`
	Operation string `json:"operation"`
}

func toGroupDTO(group *identity.PermissionGroup) *GroupDTO {
	grants := make([]GrantDTO, 0, len(group.Grants))
	for _, g := range group.Grants {
		grants = append(grants, GrantDTO{Entity: g.Entity, Operation: string(g.Operation)})
	}
	return &GroupDTO{
		ID:        group.ID,
		Code:      group.Code,
		Name:      group.Name,
		IsEnabled: group.IsEnabled,
		Grants:    grants,
		CreatedAt: group.CreatedAt,
		UpdatedAt: group.UpdatedAt,
	}
}

// Create creates a new permission group
func (s *GroupService) Create(ctx context.Context, input CreateGroupInput) (*GroupDTO, error) {
	existing, err := s.groupRepo.FindByCode(ctx, input.Code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("failed to check group code", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check group code availability")
	}
	if existing != nil {
		return nil, shared.NewDomainError("GROUP_CODE_EXISTS", "Group code already exists")
	}

	group, err := identity.NewPermissionGroup(input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.Save(ctx, group); err != nil {
		s.logger.Error("failed to save group", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create group")
	}

	s.logger.Info("permission group created",
		zap.String("group_id", group.ID.String()),
		zap.String("code", group.Code))
	return toGroupDTO(group), nil
}

// Get retrieves a permission group by id
func (s *GroupService) Get(ctx context.Context, id uuid.UUID) (*GroupDTO, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toGroupDTO(group), nil
}

// List retrieves all permission groups
func (s *GroupService) List(ctx context.Context) ([]*GroupDTO, error) {
	groups, err := s.groupRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]*GroupDTO, 0, len(groups))
	for _, group := range groups {
		dtos = append(dtos, toGroupDTO(group))
	}
	return dtos, nil
}

// AddGrant grants an (entity, operation) pair to a group
func (s *GroupService) AddGrant(ctx context.Context, id uuid.UUID, input GrantInput) (*GroupDTO, error) {
	return s.mutate(ctx, id, func(group *identity.PermissionGroup) error {
		op, err := identity.ParseOperation(input.Operation)
		if err != nil {
			return err
		}
		grant, err := identity.NewGrant(input.Entity, op)
		if err != nil {
			return err
		}
		return group.AddGrant(*grant)
	})
}

// RemoveGrant revokes an (entity, operation) pair from a group
func (s *GroupService) RemoveGrant(ctx context.Context, id uuid.UUID, input GrantInput) (*GroupDTO, error) {
	return s.mutate(ctx, id, func(group *identity.PermissionGroup) error {
		op, err := identity.ParseOperation(input.Operation)
		if err != nil {
			return err
		}
		return group.RemoveGrant(identity.Grant{Entity: input.Entity, Operation: op})
	})
}

// SetEnabled enables or disables a group. A disabled group contributes no
// grants until re-enabled.
func (s *GroupService) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*GroupDTO, error) {
	return s.mutate(ctx, id, func(group *identity.PermissionGroup) error {
		group.IsEnabled = enabled
		group.UpdatedAt = time.Now()
		group.IncrementVersion()
		return nil
	})
}

// Delete removes a permission group
func (s *GroupService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	_ = s.cache.Delete(ctx, id)
	s.logger.Info("permission group deleted", zap.String("group_id", id.String()))
	return nil
}

func (s *GroupService) mutate(ctx context.Context, id uuid.UUID, fn func(*identity.PermissionGroup) error) (*GroupDTO, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	if err := fn(group); err != nil {
		return nil, err
	}

	if err := s.groupRepo.Save(ctx, group); err != nil {
		s.logger.Error("failed to save group", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update group")
	}

	// Evict so the next access check sees the new grants immediately.
	_ = s.cache.Delete(ctx, id)

	return toGroupDTO(group), nil
}
