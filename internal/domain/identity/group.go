package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/bizsuite/backend/internal/domain/shared"
)

// Operation is the permission vocabulary evaluated against entity types
type Operation string

const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationWrite  Operation = "write"
	OperationUnlink Operation = "unlink"
)

// ParseOperation validates and normalizes an operation string
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OperationRead, OperationCreate, OperationWrite, OperationUnlink:
		return op, nil
	default:
		return "", shared.NewDomainError("INVALID_OPERATION", "Operation must be one of read, create, write, unlink")
	}
}

// Grant is a (entity type, operation) pair granted by a permission group.
// It is a value object. Absence of a grant is a deny; there is no explicit
// deny list in this model.
type Grant struct {
	Entity    string    // e.g. "contacts.contact"
	Operation Operation // e.g. OperationRead
}

// NewGrant creates a validated grant
func NewGrant(entity string, operation Operation) (*Grant, error) {
	if err := ValidateEntityName(entity); err != nil {
		return nil, err
	}
	if _, err := ParseOperation(string(operation)); err != nil {
		return nil, err
	}
	return &Grant{
		Entity:    strings.ToLower(strings.TrimSpace(entity)),
		Operation: operation,
	}, nil
}

// Equals checks if two grants are equal
func (g Grant) Equals(other Grant) bool {
	return g.Entity == other.Entity && g.Operation == other.Operation
}

// PermissionGroup groups principals and grants (entity, operation) pairs.
// It is the aggregate root for permission administration.
type PermissionGroup struct {
	shared.BaseAggregateRoot
	Code      string
	Name      string
	IsEnabled bool
	Grants    []Grant
}

// NewPermissionGroup creates a new permission group
func NewPermissionGroup(code, name string) (*PermissionGroup, error) {
	if err := validateGroupCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_GROUP_NAME", "Group name cannot be empty")
	}

	return &PermissionGroup{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              name,
		IsEnabled:         true,
		Grants:            make([]Grant, 0),
	}, nil
}

// AddGrant grants an (entity, operation) pair to the group
func (g *PermissionGroup) AddGrant(grant Grant) error {
	for _, existing := range g.Grants {
		if existing.Equals(grant) {
			return shared.NewDomainError("GRANT_ALREADY_EXISTS", "Group already has this grant")
		}
	}
	g.Grants = append(g.Grants, grant)
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
	return nil
}

// RemoveGrant revokes an (entity, operation) pair from the group
func (g *PermissionGroup) RemoveGrant(grant Grant) error {
	kept := make([]Grant, 0, len(g.Grants))
	found := false
	for _, existing := range g.Grants {
		if existing.Equals(grant) {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return shared.NewDomainError("GRANT_NOT_FOUND", "Group does not have this grant")
	}
	g.Grants = kept
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
	return nil
}

// Allows reports whether the group grants the (entity, operation) pair
func (g *PermissionGroup) Allows(entity string, operation Operation) bool {
	if !g.IsEnabled {
		return false
	}
	entity = strings.ToLower(strings.TrimSpace(entity))
	for _, grant := range g.Grants {
		if grant.Entity == entity && grant.Operation == operation {
			return true
		}
	}
	return false
}

var entityNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// ValidateEntityName checks the "<module>.<entity>" naming convention
func ValidateEntityName(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return shared.NewDomainError("INVALID_ENTITY_NAME", "Entity name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ENTITY_NAME", "Entity name cannot exceed 100 characters")
	}
	if !entityNameRegex.MatchString(name) {
		return shared.NewDomainError("INVALID_ENTITY_NAME", "Entity name must be in format 'module.entity'")
	}
	return nil
}

func validateGroupCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_GROUP_CODE", "Group code cannot be empty")
	}
	if len(code) < 2 || len(code) > 50 {
		return shared.NewDomainError("INVALID_GROUP_CODE", "Group code must be between 2 and 50 characters")
	}
	codeRegex := regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	if !codeRegex.MatchString(code) {
		return shared.NewDomainError("INVALID_GROUP_CODE", "Group code must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}
