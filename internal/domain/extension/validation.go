package extension

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared: validator instances cache struct/tag metadata
var validate = validator.New()

// MergeRules combines an entity's own validation rules with the
// extension-contributed rules for its target. Conflicts between two
// extensions are rejected at registry build; a conflict between a base
// rule and an extension rule is a programming error in the extension and
// surfaces here.
func MergeRules(base map[string]string, contributed map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(base)+len(contributed))
	for field, rule := range base {
		merged[field] = rule
	}
	for field, rule := range contributed {
		if _, exists := merged[field]; exists {
			return nil, fmt.Errorf("validation rule for field '%s' conflicts with the base entity's own rule", field)
		}
		merged[field] = rule
	}
	return merged, nil
}

// ValidationError reports one field's rule violation
type ValidationError struct {
	Field string
	Rule  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field '%s' violates rule '%s'", e.Field, e.Rule)
}

// ValidateWrite checks attribute values against the effective rule set at
// the point a write is validated. Fields without a rule pass; fields with a
// rule but no value are checked so `required` rules can fire.
func ValidateWrite(attributes map[string]any, rules map[string]string) []*ValidationError {
	var violations []*ValidationError
	for field, rule := range rules {
		if rule == "" {
			continue
		}
		if err := validate.Var(attributes[field], rule); err != nil {
			violations = append(violations, &ValidationError{Field: field, Rule: rule})
		}
	}
	return violations
}
