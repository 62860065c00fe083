package extension

import (
	"context"
	"fmt"
)

// ErrorsKey is the projection key under which per-attribute derivation
// failures are reported when the projection is not strict.
const ErrorsKey = "_errors"

// ProjectOptions controls projection behavior
type ProjectOptions struct {
	// Strict makes unknown include names and derivation failures abort
	// the whole projection instead of being ignored/isolated.
	Strict bool
}

// Projector merges extension-declared attributes and relationships into a
// flat per-request projection of a base entity. Projections are ephemeral;
// they are rebuilt on every serialization and never persisted.
type Projector struct {
	registry *Registry
}

// NewProjector creates a projector over a registry
func NewProjector(registry *Registry) *Projector {
	return &Projector{registry: registry}
}

// Project serializes an entity plus the requested include set into a flat
// name→value mapping. Base attributes are always included; everything an
// extension contributes, stored fields included, appears only when named
// in includes. Each include name resolves, in order, to: a base
// relationship, a stored extension field, an extension computed attribute,
// or an extension relationship. Unknown names are silently ignored
// (lenient-read policy) unless opts.Strict is set.
//
// Derivation functions and relation loaders may block on data-store calls;
// Project is therefore itself potentially blocking. A failing derivation is
// isolated to its attribute: the projection proceeds and the failure is
// reported under ErrorsKey, except in strict mode where it aborts.
func (p *Projector) Project(ctx context.Context, entity Extendable, includes []string, opts ProjectOptions) (map[string]any, error) {
	out := make(map[string]any)
	for name, value := range entity.Attributes() {
		out[name] = value
	}

	if len(includes) == 0 {
		return out, nil
	}

	descriptors := p.registry.DescriptorsFor(entity.EntityName())
	var fieldErrors map[string]string

	for _, include := range includes {
		if _, already := out[include]; already {
			continue
		}

		value, known, err := p.resolve(ctx, entity, descriptors, include)
		if !known {
			if opts.Strict {
				return nil, fmt.Errorf("unknown include '%s' for entity '%s'", include, entity.EntityName())
			}
			continue
		}
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("include '%s' failed: %w", include, err)
			}
			if fieldErrors == nil {
				fieldErrors = make(map[string]string)
			}
			fieldErrors[include] = err.Error()
			continue
		}
		out[include] = value
	}

	if fieldErrors != nil {
		out[ErrorsKey] = fieldErrors
	}
	return out, nil
}

// resolve finds and evaluates one include name. Descriptors are consulted
// in registration order, which keeps evaluation order reproducible when
// computed attributes have side-reads a caller might batch.
func (p *Projector) resolve(ctx context.Context, entity Extendable, descriptors []Descriptor, name string) (value any, known bool, err error) {
	value, known, err = entity.Relation(ctx, name)
	if known {
		return value, true, err
	}

	for _, desc := range descriptors {
		if _, ok := desc.Fields[name]; ok {
			stored, _ := entity.ExtensionValue(name)
			return stored, true, nil
		}
		if derive, ok := desc.Computed[name]; ok {
			value, err = evaluate(ctx, entity, derive)
			return value, true, err
		}
		if load, ok := desc.Relations[name]; ok {
			value, err = evaluate(ctx, entity, RelationLoader(load))
			return value, true, err
		}
	}
	return nil, false, nil
}

// evaluate runs a derivation, converting a panic into a per-field error so
// one misbehaving extension cannot abort the whole projection.
func evaluate(ctx context.Context, entity Extendable, fn func(context.Context, Extendable) (any, error)) (value any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("derivation panicked: %v", recovered)
		}
	}()
	return fn(ctx, entity)
}
