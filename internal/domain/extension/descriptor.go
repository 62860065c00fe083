// Package extension implements the model extension registry: the capability
// contract a module or third-party plugin implements to graft fields,
// relationships, computed attributes, query scopes, and validation rules
// onto a base entity it does not own, composed at runtime without modifying
// the owning module.
package extension

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// FieldKind is the closed set of recognized extension field types.
// An unrecognized kind fails the registry build.
type FieldKind string

const (
	FieldDecimal  FieldKind = "decimal"
	FieldString   FieldKind = "string"
	FieldText     FieldKind = "text"
	FieldInteger  FieldKind = "integer"
	FieldBoolean  FieldKind = "boolean"
	FieldDate     FieldKind = "date"
	FieldDateTime FieldKind = "datetime"
)

// FieldDef declares a storage field contributed to a target entity
type FieldDef struct {
	Kind      FieldKind
	Precision int // decimal only
	Scale     int // decimal only
	MaxLength int // bounded string only
	Label     string
}

// DecimalField declares a decimal field with precision and scale
func DecimalField(precision, scale int) FieldDef {
	return FieldDef{Kind: FieldDecimal, Precision: precision, Scale: scale}
}

// StringField declares a bounded string field
func StringField(maxLength int) FieldDef {
	return FieldDef{Kind: FieldString, MaxLength: maxLength}
}

// TextField declares an unbounded text field
func TextField() FieldDef {
	return FieldDef{Kind: FieldText}
}

// IntegerField declares an integer-family field
func IntegerField() FieldDef {
	return FieldDef{Kind: FieldInteger}
}

// BooleanField declares a boolean field
func BooleanField() FieldDef {
	return FieldDef{Kind: FieldBoolean}
}

// DateField declares a date field
func DateField() FieldDef {
	return FieldDef{Kind: FieldDate}
}

// DateTimeField declares a date/time field
func DateTimeField() FieldDef {
	return FieldDef{Kind: FieldDateTime}
}

// Valid reports whether the field kind is in the recognized set
func (d FieldDef) Valid() bool {
	switch d.Kind {
	case FieldDecimal, FieldString, FieldText, FieldInteger, FieldBoolean, FieldDate, FieldDateTime:
		return true
	default:
		return false
	}
}

// ColumnType renders the field as a SQL column type for migrations
func (d FieldDef) ColumnType() string {
	switch d.Kind {
	case FieldDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", d.Precision, d.Scale)
	case FieldString:
		return fmt.Sprintf("VARCHAR(%d)", d.MaxLength)
	case FieldText:
		return "TEXT"
	case FieldInteger:
		return "BIGINT"
	case FieldBoolean:
		return "BOOLEAN"
	case FieldDate:
		return "DATE"
	case FieldDateTime:
		return "TIMESTAMPTZ"
	default:
		return ""
	}
}

// Extendable is implemented by entities that accept extension composition
type Extendable interface {
	// EntityName returns the "<module>.<entity>" target name
	EntityName() string
	// Attributes returns the base attribute map, always projected.
	// Stored extension-field values are not base attributes; they are
	// exposed through ExtensionValue and projected only when included.
	Attributes() map[string]any
	// ExtensionValue returns the stored value of a contributed storage
	// field. The second return value reports whether a value is stored.
	ExtensionValue(name string) (any, bool)
	// Relation loads a base relationship by name. The second return value
	// reports whether the name is a known base relationship.
	Relation(ctx context.Context, name string) (any, bool, error)
}

// RelationLoader loads an extension-declared relationship for an entity.
// Loaders may issue blocking data-store calls.
type RelationLoader func(ctx context.Context, entity Extendable) (any, error)

// ComputedFunc derives a computed attribute from an entity.
// Derivations may issue blocking data-store calls (e.g. aggregate queries).
type ComputedFunc func(ctx context.Context, entity Extendable) (any, error)

// ScopePredicate is a query scope contributed to a target entity,
// exposed alongside the entity's native scopes under the same lookup.
type ScopePredicate func(db *gorm.DB) *gorm.DB

// Descriptor declares everything one module contributes to one target
// entity. Descriptors are constructed at module boot, registered once,
// and immutable thereafter.
type Descriptor struct {
	// Target names the base entity being extended, "<module>.<entity>"
	Target string
	// Fields maps contributed field names to their type specs
	Fields map[string]FieldDef
	// Relations maps contributed relationship names to their loaders
	Relations map[string]RelationLoader
	// Computed maps contributed attribute names to derivation functions
	Computed map[string]ComputedFunc
	// Scopes maps contributed scope names to query predicates
	Scopes map[string]ScopePredicate
	// Validation maps field names to validator tag expressions merged
	// into the target's effective rule set at write time
	Validation map[string]string
}

// contributedNames returns every field/relation/computed name the
// descriptor contributes. The union across all descriptors of one target
// must be pairwise disjoint.
func (d Descriptor) contributedNames() []string {
	names := make([]string, 0, len(d.Fields)+len(d.Relations)+len(d.Computed))
	for name := range d.Fields {
		names = append(names, name)
	}
	for name := range d.Relations {
		names = append(names, name)
	}
	for name := range d.Computed {
		names = append(names, name)
	}
	return names
}

// Contract is the interface a module or plugin implements to extend
// base entities. Implementations are registered at module-load time,
// never at per-request time.
type Contract interface {
	// Name returns the unique identifier for the extension
	Name() string
	// DisplayName returns the human-readable name
	DisplayName() string
	// Descriptors returns the extension's contributions, one per target
	Descriptors() []Descriptor
}

// normalizeTarget lowercases and trims a target entity name
func normalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}
