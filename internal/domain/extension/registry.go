package extension

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bizsuite/backend/internal/domain/shared"
)

// Registry indexes every registered Contract by target entity. It is the
// single source modules query to learn what has been grafted onto an
// entity they own.
//
// The index is an immutable structure swapped atomically on Build: in-flight
// readers see either the fully-old or fully-new index, never a half-built
// one. Registration order is preserved and becomes merge order.
type Registry struct {
	mu        sync.Mutex
	targets   map[string]struct{}
	contracts []Contract
	byName    map[string]struct{}

	index atomic.Pointer[registryIndex]
}

type registryIndex struct {
	version    int64
	byTarget   map[string][]Descriptor
	scopes     map[string]map[string]ScopePredicate
	validation map[string]map[string]string
}

// NewRegistry creates an empty registry. DescriptorsFor returns nothing
// until Build succeeds.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]struct{}),
		byName:  make(map[string]struct{}),
	}
}

// RegisterTarget declares a base entity that extensions may target.
// Owning modules call this at boot, before Build.
func (r *Registry) RegisterTarget(name string) error {
	name = normalizeTarget(name)
	if name == "" {
		return fmt.Errorf("%w: target name cannot be empty", shared.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[name]; exists {
		return fmt.Errorf("%w: target '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.targets[name] = struct{}{}
	return nil
}

// Register adds an extension contract. Duplicate extension names are
// rejected; all other validation happens at Build.
func (r *Registry) Register(contract Contract) error {
	if contract == nil {
		return fmt.Errorf("%w: contract cannot be nil", shared.ErrInvalidInput)
	}
	name := contract.Name()
	if name == "" {
		return fmt.Errorf("%w: contract name cannot be empty", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: extension '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.byName[name] = struct{}{}
	r.contracts = append(r.contracts, contract)
	return nil
}

// Build validates every registered descriptor and atomically publishes the
// new index. A failed build leaves any previously published index in place;
// at boot that means no index at all, and the process must refuse to serve.
//
// Validation, all fail-fast:
//  1. every Target must name a registered base entity;
//  2. the union of field/relationship/computed names contributed by all
//     descriptors of one target must be pairwise disjoint - silent shadowing
//     of one plugin's field by another is the failure mode this registry
//     exists to prevent;
//  3. every field's type must be in the recognized set;
//  4. scope names and validation-rule fields follow the same disjointness
//     rule, since scopes share one lookup with native scopes and rule
//     conflicts cannot be resolved at validation time.
func (r *Registry) Build() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := &registryIndex{
		byTarget:   make(map[string][]Descriptor),
		scopes:     make(map[string]map[string]ScopePredicate),
		validation: make(map[string]map[string]string),
	}
	if prev := r.index.Load(); prev != nil {
		next.version = prev.version + 1
	} else {
		next.version = 1
	}

	seenNames := make(map[string]map[string]string)  // target -> name -> extension
	seenScopes := make(map[string]map[string]string) // target -> scope -> extension
	seenRules := make(map[string]map[string]string)  // target -> field -> extension

	for _, contract := range r.contracts {
		for _, desc := range contract.Descriptors() {
			target := normalizeTarget(desc.Target)
			if _, known := r.targets[target]; !known {
				return shared.NewConfigurationError("extension registry",
					fmt.Sprintf("extension '%s' targets unknown entity '%s'", contract.Name(), desc.Target))
			}

			if seenNames[target] == nil {
				seenNames[target] = make(map[string]string)
				seenScopes[target] = make(map[string]string)
				seenRules[target] = make(map[string]string)
			}
			for _, name := range sorted(desc.contributedNames()) {
				if owner, taken := seenNames[target][name]; taken {
					return shared.NewConfigurationError("extension registry",
						fmt.Sprintf("name '%s' on target '%s' contributed by both '%s' and '%s'",
							name, target, owner, contract.Name()))
				}
				seenNames[target][name] = contract.Name()
			}
			for name, field := range desc.Fields {
				if !field.Valid() {
					return shared.NewConfigurationError("extension registry",
						fmt.Sprintf("field '%s.%s' from '%s' has unrecognized type '%s'",
							target, name, contract.Name(), field.Kind))
				}
			}
			for name := range desc.Scopes {
				if owner, taken := seenScopes[target][name]; taken {
					return shared.NewConfigurationError("extension registry",
						fmt.Sprintf("scope '%s' on target '%s' contributed by both '%s' and '%s'",
							name, target, owner, contract.Name()))
				}
				seenScopes[target][name] = contract.Name()
			}
			for field := range desc.Validation {
				if owner, taken := seenRules[target][field]; taken {
					return shared.NewConfigurationError("extension registry",
						fmt.Sprintf("validation rule for '%s.%s' contributed by both '%s' and '%s'",
							target, field, owner, contract.Name()))
				}
				seenRules[target][field] = contract.Name()
			}

			normalized := desc
			normalized.Target = target
			next.byTarget[target] = append(next.byTarget[target], normalized)

			if len(desc.Scopes) > 0 {
				if next.scopes[target] == nil {
					next.scopes[target] = make(map[string]ScopePredicate)
				}
				for name, pred := range desc.Scopes {
					next.scopes[target][name] = pred
				}
			}
			if len(desc.Validation) > 0 {
				if next.validation[target] == nil {
					next.validation[target] = make(map[string]string)
				}
				for field, rule := range desc.Validation {
					next.validation[target][field] = rule
				}
			}
		}
	}

	r.index.Store(next)
	return nil
}

// Rebuild discards the index and re-scans all currently registered
// contracts. It is triggered by an explicit administrative action (or an
// invalidation broadcast) and is atomic from the caller's perspective.
func (r *Registry) Rebuild() error {
	return r.Build()
}

// Built reports whether a valid index has been published
func (r *Registry) Built() bool {
	return r.index.Load() != nil
}

// Version returns the published index version, 0 when unbuilt
func (r *Registry) Version() int64 {
	idx := r.index.Load()
	if idx == nil {
		return 0
	}
	return idx.version
}

// DescriptorsFor returns the descriptors registered against a target, in
// registration order. Composition iterates this order deterministically.
func (r *Registry) DescriptorsFor(target string) []Descriptor {
	idx := r.index.Load()
	if idx == nil {
		return nil
	}
	return idx.byTarget[normalizeTarget(target)]
}

// ScopeFor looks up an extension-contributed scope by name
func (r *Registry) ScopeFor(target, name string) (ScopePredicate, bool) {
	idx := r.index.Load()
	if idx == nil {
		return nil, false
	}
	scopes, ok := idx.scopes[normalizeTarget(target)]
	if !ok {
		return nil, false
	}
	pred, ok := scopes[name]
	return pred, ok
}

// ValidationFor returns the merged extension validation rules for a target,
// keyed by field name. The result is a copy; callers may merge it with the
// entity's own base rules.
func (r *Registry) ValidationFor(target string) map[string]string {
	idx := r.index.Load()
	if idx == nil {
		return nil
	}
	rules, ok := idx.validation[normalizeTarget(target)]
	if !ok {
		return nil
	}
	merged := make(map[string]string, len(rules))
	for field, rule := range rules {
		merged[field] = rule
	}
	return merged
}

// Targets returns the registered base entity names, sorted
func (r *Registry) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sorted returns a sorted copy so conflict detection is deterministic
func sorted(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
