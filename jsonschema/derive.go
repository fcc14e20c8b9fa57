package jsonschema

import (
	"math"
	"sort"

	"github.com/reoring/schemata/schema"
)

// FromDataSchema derives the JSON Schema describing the JSON form of values
// of s. Bytes travel as base64 strings, unions become anyOf and optional
// struct fields also accept null.
func FromDataSchema(s schema.DataSchema) *Schema {
	switch t := s.(type) {
	case *schema.AnySchema:
		return &Schema{}
	case *schema.PrimitiveSchema:
		return primitive(t.Kind())
	case *schema.FixedSchema:
		return &Schema{Type: "string", ContentEncoding: "base64", Title: t.FullName()}
	case *schema.EnumSchema:
		syms := t.Symbols()
		enum := make([]any, len(syms))
		for i, sym := range syms {
			enum[i] = sym
		}
		return &Schema{Type: "string", Enum: enum, Title: t.FullName(), Description: t.Doc()}
	case *schema.ListSchema:
		return &Schema{Type: "array", Items: FromDataSchema(t.Elem())}
	case *schema.MapSchema:
		return &Schema{Type: "object", AdditionalProperties: FromDataSchema(t.Value())}
	case *schema.UnionSchema:
		out := &Schema{AnyOf: make([]*Schema, 0, t.NumAlternatives())}
		for _, alt := range t.Alternatives() {
			out.AnyOf = append(out.AnyOf, FromDataSchema(alt))
		}
		return out
	case *schema.StructSchema:
		return object(t)
	}
	return &Schema{}
}

func primitive(k schema.Kind) *Schema {
	switch k {
	case schema.KindNull:
		return &Schema{Type: "null"}
	case schema.KindBoolean:
		return &Schema{Type: "boolean"}
	case schema.KindInt:
		lo, hi := float64(math.MinInt32), float64(math.MaxInt32)
		return &Schema{Type: "integer", Minimum: &lo, Maximum: &hi}
	case schema.KindLong:
		return &Schema{Type: "integer"}
	case schema.KindDouble:
		return &Schema{Type: "number"}
	case schema.KindString:
		return &Schema{Type: "string"}
	case schema.KindBytes:
		return &Schema{Type: "string", ContentEncoding: "base64"}
	}
	return &Schema{}
}

func object(t *schema.StructSchema) *Schema {
	if t.Open() {
		return &Schema{Type: "object"}
	}
	out := &Schema{
		Type:                 "object",
		Title:                t.FullName(),
		Description:          t.Doc(),
		Properties:           make(map[string]*Schema, t.NumFields()),
		AdditionalProperties: false,
	}
	for _, f := range t.Fields() {
		ps := FromDataSchema(f.Schema())
		_, hasDefault := f.Default()
		switch {
		case f.Required() && !hasDefault && !ps.AcceptsNull():
			out.Required = append(out.Required, f.Name())
		case !ps.AcceptsNull():
			ps = &Schema{AnyOf: []*Schema{{Type: "null"}, ps}}
		}
		ps.Description = f.Doc()
		out.Properties[f.Name()] = ps
	}
	sort.Strings(out.Required)
	return out
}
