package schema

import "reflect"

// Equal reports whether a and b describe the same structure, including
// names, field attributes and defaults. Documentation is ignored.
func Equal(a, b DataSchema) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *PrimitiveSchema, *AnySchema:
		return true
	case *StructSchema:
		y := b.(*StructSchema)
		if x.namespace != y.namespace || x.name != y.name || len(x.fields) != len(y.fields) {
			return false
		}
		for i, f := range x.fields {
			g := y.fields[i]
			if f.name != g.name || f.index != g.index || f.required != g.required ||
				f.constant != g.constant || f.hasDefault != g.hasDefault ||
				!reflect.DeepEqual(f.def, g.def) || !Equal(f.schema, g.schema) {
				return false
			}
		}
		return true
	case *EnumSchema:
		y := b.(*EnumSchema)
		return x.namespace == y.namespace && x.name == y.name &&
			x.defaultSym == y.defaultSym && reflect.DeepEqual(x.symbols, y.symbols)
	case *ListSchema:
		return Equal(x.elem, b.(*ListSchema).elem)
	case *MapSchema:
		return Equal(x.value, b.(*MapSchema).value)
	case *UnionSchema:
		y := b.(*UnionSchema)
		if len(x.alts) != len(y.alts) {
			return false
		}
		for i := range x.alts {
			if !Equal(x.alts[i], y.alts[i]) {
				return false
			}
		}
		return true
	case *FixedSchema:
		y := b.(*FixedSchema)
		return x.namespace == y.namespace && x.name == y.name && x.size == y.size
	}
	return false
}
