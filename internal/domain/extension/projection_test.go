package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEntity struct {
	name       string
	attrs      map[string]any
	extensions map[string]any
	relations  map[string]any
}

func (e *stubEntity) EntityName() string         { return e.name }
func (e *stubEntity) Attributes() map[string]any { return e.attrs }

func (e *stubEntity) ExtensionValue(name string) (any, bool) {
	value, ok := e.extensions[name]
	return value, ok
}

func (e *stubEntity) Relation(_ context.Context, name string) (any, bool, error) {
	value, ok := e.relations[name]
	return value, ok, nil
}

func projectorWith(t *testing.T, descriptors ...Descriptor) *Projector {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.RegisterTarget("contacts.contact"))
	if len(descriptors) > 0 {
		require.NoError(t, r.Register(&stubContract{name: "stub", descriptors: descriptors}))
	}
	require.NoError(t, r.Build())
	return NewProjector(r)
}

func TestProjectorBaseAttributes(t *testing.T) {
	p := projectorWith(t)
	entity := &stubEntity{
		name:  "contacts.contact",
		attrs: map[string]any{"name": "Acme", "email": "info@acme.test"},
	}

	out, err := p.Project(context.Background(), entity, nil, ProjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Acme", "email": "info@acme.test"}, out)
}

func TestProjectorIncludeResolution(t *testing.T) {
	t.Run("base relationship wins over extension attributes", func(t *testing.T) {
		p := projectorWith(t, Descriptor{
			Target: "contacts.contact",
			Computed: map[string]ComputedFunc{
				"company": func(context.Context, Extendable) (any, error) {
					return "from extension", nil
				},
			},
		})
		entity := &stubEntity{
			name:      "contacts.contact",
			attrs:     map[string]any{"name": "Acme"},
			relations: map[string]any{"company": "from base"},
		}

		out, err := p.Project(context.Background(), entity, []string{"company"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "from base", out["company"])
	})

	t.Run("resolves computed attributes and extension relationships", func(t *testing.T) {
		p := projectorWith(t, Descriptor{
			Target: "contacts.contact",
			Computed: map[string]ComputedFunc{
				"outstanding_balance": func(context.Context, Extendable) (any, error) {
					return "1250.50", nil
				},
			},
			Relations: map[string]RelationLoader{
				"payment_terms": func(context.Context, Extendable) (any, error) {
					return map[string]any{"code": "NET30"}, nil
				},
			},
		})
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		out, err := p.Project(context.Background(), entity,
			[]string{"outstanding_balance", "payment_terms"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "1250.50", out["outstanding_balance"])
		assert.Equal(t, map[string]any{"code": "NET30"}, out["payment_terms"])
	})

	t.Run("stored fields appear only when included", func(t *testing.T) {
		p := projectorWith(t, Descriptor{
			Target: "contacts.contact",
			Fields: map[string]FieldDef{
				"credit_limit": DecimalField(12, 2),
			},
		})
		entity := &stubEntity{
			name:       "contacts.contact",
			attrs:      map[string]any{"name": "Acme"},
			extensions: map[string]any{"credit_limit": "1000.00"},
		}

		out, err := p.Project(context.Background(), entity, nil, ProjectOptions{})
		require.NoError(t, err)
		assert.NotContains(t, out, "credit_limit")

		out, err = p.Project(context.Background(), entity, []string{"credit_limit"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "1000.00", out["credit_limit"])
	})

	t.Run("declared field with no stored value includes as nil", func(t *testing.T) {
		p := projectorWith(t, Descriptor{
			Target: "contacts.contact",
			Fields: map[string]FieldDef{
				"credit_limit": DecimalField(12, 2),
			},
		})
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		out, err := p.Project(context.Background(), entity, []string{"credit_limit"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Contains(t, out, "credit_limit")
		assert.Nil(t, out["credit_limit"])
	})

	t.Run("unknown includes are skipped unless strict", func(t *testing.T) {
		p := projectorWith(t)
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		out, err := p.Project(context.Background(), entity, []string{"no_such"}, ProjectOptions{})
		require.NoError(t, err)
		assert.NotContains(t, out, "no_such")

		_, err = p.Project(context.Background(), entity, []string{"no_such"}, ProjectOptions{Strict: true})
		assert.Error(t, err)
	})

	t.Run("includes shadowed by base attributes are not re-resolved", func(t *testing.T) {
		p := projectorWith(t, Descriptor{
			Target: "contacts.contact",
			Computed: map[string]ComputedFunc{
				"name": func(context.Context, Extendable) (any, error) {
					return "overridden", nil
				},
			},
		})
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		// "name" collides with a base attribute here only because the stub
		// bypasses build-time legality; projection must still prefer the base.
		out, err := p.Project(context.Background(), entity, []string{"name"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Acme", out["name"])
	})
}

func TestProjectorDerivationFailures(t *testing.T) {
	failing := Descriptor{
		Target: "contacts.contact",
		Computed: map[string]ComputedFunc{
			"broken": func(context.Context, Extendable) (any, error) {
				return nil, errors.New("backend unavailable")
			},
			"panicky": func(context.Context, Extendable) (any, error) {
				panic("boom")
			},
			"healthy": func(context.Context, Extendable) (any, error) {
				return 7, nil
			},
		},
	}

	t.Run("failure is isolated to its attribute", func(t *testing.T) {
		p := projectorWith(t, failing)
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		out, err := p.Project(context.Background(), entity,
			[]string{"broken", "healthy"}, ProjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, 7, out["healthy"])
		assert.NotContains(t, out, "broken")

		fieldErrors := out[ErrorsKey].(map[string]string)
		assert.Contains(t, fieldErrors["broken"], "backend unavailable")
	})

	t.Run("panicking derivation becomes a per-field error", func(t *testing.T) {
		p := projectorWith(t, failing)
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		out, err := p.Project(context.Background(), entity, []string{"panicky"}, ProjectOptions{})
		require.NoError(t, err)

		fieldErrors := out[ErrorsKey].(map[string]string)
		assert.Contains(t, fieldErrors["panicky"], "boom")
	})

	t.Run("strict mode aborts on failure", func(t *testing.T) {
		p := projectorWith(t, failing)
		entity := &stubEntity{name: "contacts.contact", attrs: map[string]any{"name": "Acme"}}

		_, err := p.Project(context.Background(), entity, []string{"broken"}, ProjectOptions{Strict: true})
		assert.Error(t, err)
	})
}
