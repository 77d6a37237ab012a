package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSchema_RequiredAndDefaults(t *testing.T) {
	s := Object(
		Field("url", String()),
		Field("retries", Default(Number(), float64(3))),
		Field("label", Optional(String())),
	)

	out, err := s.Validate(map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "https://example.com", m["url"])
	assert.Equal(t, float64(3), m["retries"])
	_, hasLabel := m["label"]
	assert.False(t, hasLabel, "optional field with no default should be stripped")
}

func TestObjectSchema_MissingRequiredFails(t *testing.T) {
	s := Object(Field("url", String()))
	_, err := s.Validate(map[string]any{})
	assert.Error(t, err)
}

func TestArraySchema_ValidatesElements(t *testing.T) {
	s := Array(Number())
	out, err := s.Validate([]any{float64(1), float64(2), float64(3)})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, out)

	_, err = s.Validate([]any{"not a number"})
	assert.Error(t, err)
}

func TestEnumSchema(t *testing.T) {
	s := Enum("a", "b", "c")
	_, err := s.Validate("b")
	assert.NoError(t, err)
	_, err = s.Validate("z")
	assert.Error(t, err)
}

func TestIntrospect_ObjectAndNested(t *testing.T) {
	s := Object(
		Field("name", String()),
		Field("tags", Array(Object(Field("key", String()), Field("value", String())))),
	)
	fields := s.Introspect()
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, FieldString, fields[0].Type)
	assert.True(t, fields[0].Required)

	assert.Equal(t, "tags", fields[1].Name)
	assert.Equal(t, FieldArray, fields[1].Type)
	require.Len(t, fields[1].Children, 2)
	assert.Equal(t, "key", fields[1].Children[0].Name)
}

func TestIntrospect_NonObjectTopLevelIsEmpty(t *testing.T) {
	assert.Empty(t, String().Introspect())
	assert.Empty(t, Array(String()).Introspect())
}

func TestNullable(t *testing.T) {
	s := Nullable(String())
	out, err := s.Validate(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
