package schema

import (
	"github.com/reoring/schemata/internal/native"
)

// Matches is the structural predicate of s over an untyped native value
// (map[string]any, []any, string, bool, integers, floats, json.Number,
// []byte, nil). It never converts: a float is not an int and a string is
// not a number.
//
// Union resolution and default validation are both built on it.
func Matches(s DataSchema, v any) bool {
	switch t := s.(type) {
	case *AnySchema:
		return true
	case *UnionSchema:
		return MatchIndex(t, v) >= 0
	case *PrimitiveSchema:
		return matchPrimitive(t.kind, v)
	case *EnumSchema:
		sym, ok := v.(string)
		return ok && t.HasSymbol(sym)
	case *FixedSchema:
		b, ok := v.([]byte)
		return ok && len(b) == t.size
	case *ListSchema:
		items, ok := native.List(v)
		if !ok {
			return false
		}
		for _, it := range items {
			if !Matches(t.elem, it) {
				return false
			}
		}
		return true
	case *MapSchema:
		m, ok := native.Map(v)
		if !ok {
			return false
		}
		for _, val := range m {
			if !Matches(t.value, val) {
				return false
			}
		}
		return true
	case *StructSchema:
		m, ok := native.Map(v)
		if !ok {
			return false
		}
		if t.Open() {
			return true
		}
		for k := range m {
			if _, known := t.byName[k]; !known {
				return false
			}
		}
		for _, f := range t.fields {
			val, present := m[f.name]
			if !present || val == nil {
				if f.required && !f.hasDefault && !Matches(f.schema, nil) {
					return false
				}
				continue
			}
			if !Matches(f.schema, val) {
				return false
			}
		}
		return true
	}
	return false
}

// MatchIndex returns the index of the first alternative of u that matches v,
// or -1. Declaration order decides between overlapping alternatives.
func MatchIndex(u *UnionSchema, v any) int {
	for i, alt := range u.alts {
		if Matches(alt, v) {
			return i
		}
	}
	return -1
}

// MatchAll returns the indexes of every alternative of u that matches v.
func MatchAll(u *UnionSchema, v any) []int {
	var out []int
	for i, alt := range u.alts {
		if Matches(alt, v) {
			out = append(out, i)
		}
	}
	return out
}

func matchPrimitive(k Kind, v any) bool {
	switch k {
	case KindNull:
		return v == nil
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindInt:
		i, ok := native.Integer(v)
		return ok && native.FitsInt32(i)
	case KindLong:
		_, ok := native.Integer(v)
		return ok
	case KindDouble:
		_, ok := native.Float(v)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBytes:
		_, ok := v.([]byte)
		return ok
	}
	return false
}
