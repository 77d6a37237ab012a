// Package schema implements the declarative input/output shape layer:
// values are validated and normalized against a schema, and a schema can
// introspect its own field set for tooling (editors, docs generators).
//
// Validation failures produced here are distinct from executor failures;
// callers surface them as flowerr.ValidationError.
package schema

import (
	"fmt"
)

// FieldType is the closed set of shapes a schema field can take.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldEnum    FieldType = "enum"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
	FieldUnknown FieldType = "unknown"
)

// FieldDescriptor describes one field of an object schema, or the element
// shape of an array schema.
type FieldDescriptor struct {
	Name         string
	Type         FieldType
	Required     bool
	Description  string
	DefaultValue any
	EnumValues   []string
	Children     []FieldDescriptor
}

// Schema validates and introspects a value's shape. The set of concrete
// schemas is closed (String, Number, Bool, Enum, Array, Object, Any);
// compose them rather than implementing this interface directly.
type Schema interface {
	// Validate normalizes value, applying defaults and stripping optional
	// undefined fields. It returns a plain error on failure; callers wrap
	// it as flowerr.ValidationError.
	Validate(value any) (any, error)
	// Introspect returns this schema's own field set. Non-object top-level
	// schemas return an empty list.
	Introspect() []FieldDescriptor

	kind() FieldType
	describe(name string) FieldDescriptor
}

// meta carries the modifiers shared by every concrete schema: optional,
// nullable, default value, and human description.
type meta struct {
	optional    bool
	nullable    bool
	hasDefault  bool
	defValue    any
	description string
}

func (m meta) required() bool { return !m.optional && !m.hasDefault }

// Optional marks a field as not required, with no default value.
func Optional(s Schema) Schema { return withMeta(s, func(m *meta) { m.optional = true }) }

// Nullable marks a field as not required and accepts nil as a valid value
// in its own right: nil validates to nil, with no default substituted.
func Nullable(s Schema) Schema {
	return withMeta(s, func(m *meta) { m.optional = true; m.nullable = true })
}

// Default supplies a default value, surfaced in FieldDescriptor.DefaultValue
// and substituted when the field is absent.
func Default(s Schema, value any) Schema {
	return withMeta(s, func(m *meta) { m.hasDefault = true; m.defValue = value })
}

// Describe attaches a human description surfaced via Introspect.
func Describe(s Schema, text string) Schema {
	return withMeta(s, func(m *meta) { m.description = text })
}

func withMeta(s Schema, apply func(*meta)) Schema {
	switch v := s.(type) {
	case *stringSchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *numberSchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *boolSchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *enumSchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *arraySchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *objectSchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	case *anySchema:
		cp := *v
		apply(&cp.meta)
		return &cp
	default:
		return s
	}
}

// resolveAbsent applies the shared optional/default/required handling that
// every concrete schema needs before running its own leaf validation. A nil
// value is treated as absent (Go's map lookups already conflate a missing
// key with an explicitly-null one once decoded); Nullable schemas accept
// that nil as a valid value in its own right instead of substituting a
// default or erroring.
func resolveAbsent(m meta, value any) (normalized any, handled bool, err error) {
	if value != nil {
		return nil, false, nil
	}
	if m.nullable {
		return nil, true, nil
	}
	if m.hasDefault {
		return m.defValue, true, nil
	}
	if m.required() {
		return nil, true, fmt.Errorf("required field is missing")
	}
	return nil, true, errAbsentOptional
}

var errAbsentOptional = fmt.Errorf("__absent_optional__")

func objectFieldDescriptors(fields []objectField) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.schema.describe(f.name))
	}
	return out
}
