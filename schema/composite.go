package schema

import "fmt"

// Array builds a schema over a homogeneous sequence, validating each
// element against elem.
func Array(elem Schema) Schema { return &arraySchema{elem: elem} }

type arraySchema struct {
	meta meta
	elem Schema
}

func (s *arraySchema) kind() FieldType { return FieldArray }

func (s *arraySchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", value)
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := s.elem.Validate(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Introspect on an array returns an empty list; the array itself is not
// object-shaped, and its element shape lives in the field's Children
// when the array appears nested inside an object.
func (s *arraySchema) Introspect() []FieldDescriptor { return nil }

func (s *arraySchema) describe(name string) FieldDescriptor {
	fd := FieldDescriptor{Name: name, Type: FieldArray, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue}
	if obj, ok := s.elem.(*objectSchema); ok {
		fd.Children = objectFieldDescriptors(obj.fields)
	}
	return fd
}

// objectField is one declared field of an Object schema.
type objectField struct {
	name   string
	schema Schema
}

// Field declares one named field for use with Object.
func Field(name string, s Schema) objectField { return objectField{name: name, schema: s} }

// Object builds a schema over a string-keyed map, validating each declared
// field against its own schema. Keys present in the input but not declared
// are passed through unchanged; optional declared fields absent from the
// input and without a default are stripped from the normalized result.
func Object(fields ...objectField) Schema { return &objectSchema{fields: fields} }

type objectSchema struct {
	meta   meta
	fields []objectField
}

func (s *objectSchema) kind() FieldType { return FieldObject }

func (s *objectSchema) Validate(value any) (any, error) {
	norm, handled, err := resolveAbsent(s.meta, value)
	if handled {
		if err == errAbsentOptional {
			return nil, nil
		}
		return norm, err
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", value)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, f := range s.fields {
		v, err := f.schema.Validate(raw[f.name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		if v == nil {
			if _, present := raw[f.name]; !present {
				delete(out, f.name)
				continue
			}
		}
		out[f.name] = v
	}
	return out, nil
}

func (s *objectSchema) Introspect() []FieldDescriptor {
	return objectFieldDescriptors(s.fields)
}

func (s *objectSchema) describe(name string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldObject, Required: s.meta.required(),
		Description: s.meta.description, DefaultValue: s.meta.defValue,
		Children: objectFieldDescriptors(s.fields)}
}
