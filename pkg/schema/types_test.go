package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTypes(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantErr bool
	}{
		{"string ok", String(), "hello", false},
		{"string rejects int", String(), 5, true},
		{"int ok", Int(), 3, false},
		{"int accepts whole float", Int(), 3.0, false},
		{"int rejects fraction", Int(), 3.5, true},
		{"int rejects string", Int(), "3", true},
		{"float accepts int", Float(), 2, false},
		{"float ok", Float(), 2.25, false},
		{"float rejects bool", Float(), true, true},
		{"bool ok", Bool(), false, false},
		{"bool rejects string", Bool(), "true", true},
		{"any accepts nil", Any(), nil, false},
		{"slice ok", Slice(Int()), []any{1.0, 2.0}, false},
		{"slice typed", Slice(String()), []string{"a"}, false},
		{"slice bad element", Slice(Int()), []any{1.0, "x"}, true},
		{"slice rejects scalar", Slice(Int()), 1, true},
		{"slice rejects nil", Slice(Int()), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustomType(t *testing.T) {
	positive := Custom("positive", func(v any) error {
		if f, ok := v.(float64); ok && f > 0 {
			return nil
		}
		return assert.AnError
	})

	assert.Equal(t, "positive", positive.Name())
	assert.NoError(t, positive.Validate(1.0))
	assert.ErrorIs(t, positive.Validate(-1.0), assert.AnError)
}

func TestParseType(t *testing.T) {
	for _, tag := range []string{"string", "int", "float", "bool", "any", "[int]", "[[string]]"} {
		typ, err := ParseType(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, tag, typ.Name())
	}

	typ, err := ParseType(" int ")
	require.NoError(t, err)
	assert.Equal(t, "int", typ.Name())

	for _, tag := range []string{"", "[]", "integer", "[vec3]"} {
		_, err := ParseType(tag)
		assert.Error(t, err, tag)
	}
}

func TestParseTypeMap(t *testing.T) {
	s, err := ParseTypeMap(map[string]string{"damage": "int", "tags": "[string]"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"damage": "int", "tags": "[string]"}, s.Tags())

	_, err = ParseTypeMap(map[string]string{"damage": "dmg"})
	assert.ErrorContains(t, err, "field damage")
}
