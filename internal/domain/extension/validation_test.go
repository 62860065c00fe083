package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldDefColumnType(t *testing.T) {
	tests := []struct {
		def      FieldDef
		expected string
	}{
		{DecimalField(12, 2), "NUMERIC(12,2)"},
		{StringField(32), "VARCHAR(32)"},
		{TextField(), "TEXT"},
		{IntegerField(), "BIGINT"},
		{BooleanField(), "BOOLEAN"},
		{DateField(), "DATE"},
		{DateTimeField(), "TIMESTAMPTZ"},
		{FieldDef{Kind: FieldKind("jsonb")}, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.def.Kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.def.ColumnType())
			assert.Equal(t, tt.expected != "", tt.def.Valid())
		})
	}
}

func TestMergeRules(t *testing.T) {
	t.Run("merges disjoint rule sets", func(t *testing.T) {
		merged, err := MergeRules(
			map[string]string{"email": "omitempty,email"},
			map[string]string{"credit_limit": "omitempty,numeric"},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"email":        "omitempty,email",
			"credit_limit": "omitempty,numeric",
		}, merged)
	})

	t.Run("rejects a rule shadowing a base rule", func(t *testing.T) {
		_, err := MergeRules(
			map[string]string{"email": "omitempty,email"},
			map[string]string{"email": "required"},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email")
	})
}

func TestValidateWrite(t *testing.T) {
	rules := map[string]string{
		"credit_limit":       "omitempty,numeric,gte=0",
		"payment_terms_code": "omitempty,alphanum,max=32",
		"reference":          "required",
	}

	t.Run("passing values produce no violations", func(t *testing.T) {
		violations := ValidateWrite(map[string]any{
			"credit_limit":       "5000.00",
			"payment_terms_code": "NET30",
			"reference":          "ref-1",
		}, rules)
		assert.Empty(t, violations)
	})

	t.Run("violations name the field and rule", func(t *testing.T) {
		violations := ValidateWrite(map[string]any{
			"credit_limit": "not-a-number",
			"reference":    "ref-1",
		}, rules)
		require.Len(t, violations, 1)
		assert.Equal(t, "credit_limit", violations[0].Field)
		assert.Contains(t, violations[0].Error(), "numeric")
	})

	t.Run("required rules fire on absent values", func(t *testing.T) {
		violations := ValidateWrite(map[string]any{}, map[string]string{"reference": "required"})
		require.Len(t, violations, 1)
		assert.Equal(t, "reference", violations[0].Field)
	})
}
