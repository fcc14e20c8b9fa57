package schema

import (
	"fmt"

	schemata "github.com/reoring/schemata"
)

// IsAssignableFrom reports whether values of candidate may flow where target
// is declared. It is a static check used while a pipeline is constructed.
//
//   - primitives: same kind, or widening along int -> long -> double
//   - structs: every required target field exists in candidate with an
//     assignable schema; extra candidate fields are fine
//   - lists/maps: element/value schemas are assignable
//   - unions: a union target accepts a candidate one of its alternatives
//     accepts; a union candidate needs every alternative to be assignable
func IsAssignableFrom(target, candidate DataSchema) bool {
	if target == nil || candidate == nil {
		return false
	}
	if target == candidate {
		return true
	}
	if cu, ok := candidate.(*UnionSchema); ok {
		for _, alt := range cu.alts {
			if !IsAssignableFrom(target, alt) {
				return false
			}
		}
		return true
	}
	switch t := target.(type) {
	case *AnySchema:
		return true
	case *UnionSchema:
		for _, alt := range t.alts {
			if IsAssignableFrom(alt, candidate) {
				return true
			}
		}
		return false
	case *PrimitiveSchema:
		if c, ok := candidate.(*PrimitiveSchema); ok {
			return widens(c.kind, t.kind)
		}
		if t.kind == KindBytes {
			_, fixed := candidate.(*FixedSchema)
			return fixed
		}
		return false
	case *StructSchema:
		c, ok := candidate.(*StructSchema)
		if !ok {
			return false
		}
		if t.Open() {
			return true
		}
		for _, f := range t.fields {
			if !f.required {
				continue
			}
			cf, ok := c.Field(f.name)
			if !ok || !IsAssignableFrom(f.schema, cf.schema) {
				return false
			}
		}
		return true
	case *EnumSchema:
		c, ok := candidate.(*EnumSchema)
		if !ok {
			return false
		}
		for _, sym := range c.symbols {
			if !t.HasSymbol(sym) {
				return false
			}
		}
		return true
	case *ListSchema:
		c, ok := candidate.(*ListSchema)
		return ok && IsAssignableFrom(t.elem, c.elem)
	case *MapSchema:
		c, ok := candidate.(*MapSchema)
		return ok && IsAssignableFrom(t.value, c.value)
	case *FixedSchema:
		c, ok := candidate.(*FixedSchema)
		return ok && c.size == t.size
	}
	return false
}

// widens reports whether a value of kind from may be used as kind to.
func widens(from, to Kind) bool {
	if from == to {
		return true
	}
	switch from {
	case KindInt:
		return to == KindLong || to == KindDouble
	case KindLong:
		return to == KindDouble
	}
	return false
}

// CheckAssignable returns a configuration-time type error naming both
// schemas when candidate cannot flow into target.
func CheckAssignable(target, candidate DataSchema) error {
	if IsAssignableFrom(target, candidate) {
		return nil
	}
	desc := func(s DataSchema) string {
		if s == nil {
			return "<nil>"
		}
		return s.String()
	}
	return &schemata.Error{
		Kind: schemata.KindSchemaDefinition,
		Op:   "schema.CheckAssignable",
		Err:  fmt.Errorf("%w: %s is not assignable from %s", schemata.ErrNotAssignable, desc(target), desc(candidate)),
		Issues: schemata.Issues{
			schemata.NewIssue("/", schemata.CodeNotAssignable, "target "+desc(target)+", candidate "+desc(candidate)),
		},
	}
}
