package avro

import (
	"fmt"

	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// toAvro converts obj, a value of s, into the native form goavro encodes:
// records and maps as map[string]any, unions as nil or a single-entry map
// keyed by the branch name.
func (g *generator) toAvro(s schema.DataSchema, obj object.DataObject) (any, error) {
	switch t := s.(type) {
	case *schema.UnionSchema:
		if isNull(obj) {
			if !t.Nullable() {
				return nil, fmt.Errorf("null is not an alternative of %s", t)
			}
			return nil, nil
		}
		alt := alternativeFor(t, obj)
		if alt == nil {
			return nil, fmt.Errorf("%s matches no alternative of %s", obj.Schema(), t)
		}
		v, err := g.toAvro(alt, obj)
		if err != nil {
			return nil, err
		}
		return map[string]any{g.branch(alt): v}, nil
	case *schema.StructSchema:
		st, ok := obj.(*object.Struct)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %s", t, obj.Schema())
		}
		out := make(map[string]any, t.NumFields())
		for _, f := range t.Fields() {
			v := st.Get(f.Name())
			if optional(f) {
				if isNull(v) {
					out[f.Name()] = nil
					continue
				}
				inner, err := g.toAvro(f.Schema(), v)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", f.Name(), err)
				}
				if f.Schema().Kind() == schema.KindUnion {
					// already keyed by the resolved member
					out[f.Name()] = inner
					continue
				}
				out[f.Name()] = map[string]any{g.branch(f.Schema()): inner}
				continue
			}
			if v == nil {
				v = object.NullValue
			}
			av, err := g.toAvro(f.Schema(), v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name(), err)
			}
			out[f.Name()] = av
		}
		return out, nil
	case *schema.ListSchema:
		l, ok := obj.(*object.List)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %s", t, obj.Schema())
		}
		out := make([]any, 0, l.Len())
		for i := 0; i < l.Len(); i++ {
			v, err := g.toAvro(t.Elem(), l.At(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *schema.MapSchema:
		m, ok := obj.(*object.Map)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %s", t, obj.Schema())
		}
		out := make(map[string]any, m.Len())
		for _, k := range m.Keys() {
			v, err := g.toAvro(t.Value(), m.Get(k))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return object.Native(obj), nil
}

func isNull(obj object.DataObject) bool {
	if obj == nil {
		return true
	}
	_, ok := obj.(*object.Null)
	return ok
}

// alternativeFor picks the union member obj was bound to, falling back to
// the first member that accepts it.
func alternativeFor(u *schema.UnionSchema, obj object.DataObject) schema.DataSchema {
	bound := obj.Schema()
	for _, alt := range u.Alternatives() {
		if alt == bound || (alt.Kind().IsPrimitive() && alt.Kind() == bound.Kind()) {
			return alt
		}
	}
	for _, alt := range u.Alternatives() {
		if alt.Kind() != schema.KindNull && object.Validate(alt, obj) == nil {
			return alt
		}
	}
	return nil
}

// fromAvro converts a goavro native value of s into a plain native tree
// object.From accepts.
func (g *generator) fromAvro(s schema.DataSchema, v any) any {
	switch t := s.(type) {
	case *schema.UnionSchema:
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return v
		}
		for name, inner := range m {
			for _, alt := range t.Alternatives() {
				if g.branch(alt) == name {
					return g.fromAvro(alt, inner)
				}
			}
		}
		return v
	case *schema.StructSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for _, f := range t.Fields() {
			fv, present := m[f.Name()]
			if !present || fv == nil {
				continue
			}
			if optional(f) && f.Schema().Kind() != schema.KindUnion {
				wrapped, ok := fv.(map[string]any)
				if !ok {
					continue
				}
				fv = wrapped[g.branch(f.Schema())]
			}
			out[f.Name()] = g.fromAvro(f.Schema(), fv)
		}
		return out
	case *schema.ListSchema:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = g.fromAvro(t.Elem(), it)
		}
		return out
	case *schema.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, it := range m {
			out[k] = g.fromAvro(t.Value(), it)
		}
		return out
	}
	return v
}
