package schema

import "fmt"

// String builds a schema that accepts string values.
func String() Schema { return &stringSchema{} }

type stringSchema struct{ meta meta }

func (s *stringSchema) kind() FieldType { return FieldString }

func (s *stringSchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", value)
	}
	return str, nil
}

func (s *stringSchema) Introspect() []FieldDescriptor { return nil }

func (s *stringSchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldString, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue}
}

// Number builds a schema that accepts float64 (the canonical decoded form
// of JSON numbers), float32, int, int32, and int64, normalizing each to
// float64. Other numeric types, such as int8 or the unsigned integers, are
// rejected.
func Number() Schema { return &numberSchema{} }

type numberSchema struct{ meta meta }

func (s *numberSchema) kind() FieldType { return FieldNumber }

func (s *numberSchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	switch n := value.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return nil, fmt.Errorf("expected number, got %T", value)
	}
}

func (s *numberSchema) Introspect() []FieldDescriptor { return nil }

func (s *numberSchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldNumber, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue}
}

// Bool builds a schema that accepts boolean values.
func Bool() Schema { return &boolSchema{} }

type boolSchema struct{ meta meta }

func (s *boolSchema) kind() FieldType { return FieldBoolean }

func (s *boolSchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("expected boolean, got %T", value)
	}
	return b, nil
}

func (s *boolSchema) Introspect() []FieldDescriptor { return nil }

func (s *boolSchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldBoolean, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue}
}

// Enum builds a schema that accepts one of a fixed set of string values.
func Enum(values ...string) Schema { return &enumSchema{values: values} }

type enumSchema struct {
	meta   meta
	values []string
}

func (s *enumSchema) kind() FieldType { return FieldEnum }

func (s *enumSchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected enum string, got %T", value)
	}
	for _, v := range s.values {
		if v == str {
			return str, nil
		}
	}
	return nil, fmt.Errorf("value %q is not one of %v", str, s.values)
}

func (s *enumSchema) Introspect() []FieldDescriptor { return nil }

func (s *enumSchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldEnum, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue, EnumValues: s.values}
}

// Any builds a schema that accepts and passes through any value verbatim,
// mapping to FieldUnknown in introspection.
func Any() Schema { return &anySchema{} }

type anySchema struct{ meta meta }

func (s *anySchema) kind() FieldType { return FieldUnknown }

func (s *anySchema) Validate(value any) (any, error) {
	if !hasValue(value) {
		if s.meta.hasDefault {
			return s.meta.defValue, nil
		}
		if s.meta.required() {
			return nil, fmt.Errorf("required field is missing")
		}
		return nil, nil
	}
	return value, nil
}

func (s *anySchema) Introspect() []FieldDescriptor { return nil }

func (s *anySchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldUnknown, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue}
}

func hasValue(v any) bool { return v != nil }
