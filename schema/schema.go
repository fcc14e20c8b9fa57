// Package schema defines the portable structural schema model: primitive,
// struct, enum, list, map, union and fixed schemas, plus the assignability
// rules used to type-check pipelines at construction time.
//
// Schemas are immutable once built and safe for concurrent use.
package schema

import (
	"strings"
)

// Kind identifies a schema variant.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindDouble
	KindString
	KindBytes
	KindAny
	KindStruct
	KindEnum
	KindList
	KindMap
	KindUnion
	KindFixed
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindDouble:  "double",
	KindString:  "string",
	KindBytes:   "bytes",
	KindAny:     "any",
	KindStruct:  "struct",
	KindEnum:    "enum",
	KindList:    "list",
	KindMap:     "map",
	KindUnion:   "union",
	KindFixed:   "fixed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsPrimitive reports whether k is one of the scalar kinds (null included).
func (k Kind) IsPrimitive() bool { return k >= KindNull && k <= KindBytes }

// DataSchema is the closed set of schema variants. The unexported method
// keeps implementations inside this package so exhaustive switches stay valid.
type DataSchema interface {
	Kind() Kind
	String() string
	sealed()
}

// PrimitiveSchema describes a scalar value.
type PrimitiveSchema struct{ kind Kind }

func (p *PrimitiveSchema) Kind() Kind     { return p.kind }
func (p *PrimitiveSchema) String() string { return p.kind.String() }
func (*PrimitiveSchema) sealed()          {}

// Shared primitive schemas. Compare kinds, not pointers, when matching.
var (
	Null    = &PrimitiveSchema{kind: KindNull}
	Boolean = &PrimitiveSchema{kind: KindBoolean}
	Int     = &PrimitiveSchema{kind: KindInt}
	Long    = &PrimitiveSchema{kind: KindLong}
	Double  = &PrimitiveSchema{kind: KindDouble}
	String  = &PrimitiveSchema{kind: KindString}
	Bytes   = &PrimitiveSchema{kind: KindBytes}
)

// PrimitiveOf returns the shared primitive schema for k.
func PrimitiveOf(k Kind) (*PrimitiveSchema, bool) {
	switch k {
	case KindNull:
		return Null, true
	case KindBoolean:
		return Boolean, true
	case KindInt:
		return Int, true
	case KindLong:
		return Long, true
	case KindDouble:
		return Double, true
	case KindString:
		return String, true
	case KindBytes:
		return Bytes, true
	}
	return nil, false
}

// AnySchema accepts every value.
type AnySchema struct{}

func (*AnySchema) Kind() Kind     { return KindAny }
func (*AnySchema) String() string { return "any" }
func (*AnySchema) sealed()        {}

// Any is the shared AnySchema.
var Any = &AnySchema{}

// DataField is a named member of a StructSchema.
type DataField struct {
	name       string
	schema     DataSchema
	doc        string
	index      int
	required   bool
	constant   bool
	hasDefault bool
	def        any
}

func (f *DataField) Name() string       { return f.name }
func (f *DataField) Schema() DataSchema { return f.schema }
func (f *DataField) Doc() string        { return f.doc }

// Index is the declared position of the field, which defaults to its order
// in the struct.
func (f *DataField) Index() int       { return f.index }
func (f *DataField) Required() bool   { return f.required }
func (f *DataField) Constant() bool   { return f.constant }
func (f *DataField) HasDefault() bool { return f.hasDefault }

// Default returns the native default value and whether one was declared. A
// declared default may itself be nil.
func (f *DataField) Default() (any, bool) { return f.def, f.hasDefault }

// StructSchema is an ordered list of uniquely named fields. A struct with no
// name and no fields is open: it accepts any field with any value.
type StructSchema struct {
	namespace string
	name      string
	doc       string
	fields    []*DataField
	byName    map[string]int
}

// AnyStruct is the open struct schema used for schemaless records.
var AnyStruct = &StructSchema{byName: map[string]int{}}

func (*StructSchema) Kind() Kind          { return KindStruct }
func (*StructSchema) sealed()             {}
func (s *StructSchema) Namespace() string { return s.namespace }
func (s *StructSchema) Name() string      { return s.name }
func (s *StructSchema) Doc() string       { return s.doc }

// FullName joins namespace and name with a dot.
func (s *StructSchema) FullName() string { return fullName(s.namespace, s.name) }

// Open reports whether the struct accepts arbitrary fields.
func (s *StructSchema) Open() bool { return s.name == "" && len(s.fields) == 0 }

// Fields returns the fields in declaration order.
func (s *StructSchema) Fields() []*DataField {
	out := make([]*DataField, len(s.fields))
	copy(out, s.fields)
	return out
}

// NumFields returns the number of declared fields.
func (s *StructSchema) NumFields() int { return len(s.fields) }

// FieldAt returns the i-th declared field.
func (s *StructSchema) FieldAt(i int) *DataField { return s.fields[i] }

// Field looks a field up by name.
func (s *StructSchema) Field(name string) (*DataField, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

func (s *StructSchema) String() string {
	if s.name != "" {
		return "struct " + s.FullName()
	}
	if s.Open() {
		return "struct"
	}
	b := &strings.Builder{}
	b.WriteString("struct{")
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(f.name)
		b.WriteString(":")
		b.WriteString(f.schema.String())
	}
	b.WriteString("}")
	return b.String()
}

// EnumSchema is an ordered set of symbols.
type EnumSchema struct {
	namespace  string
	name       string
	doc        string
	symbols    []string
	set        map[string]struct{}
	defaultSym string
}

func (*EnumSchema) Kind() Kind          { return KindEnum }
func (*EnumSchema) sealed()             {}
func (e *EnumSchema) Namespace() string { return e.namespace }
func (e *EnumSchema) Name() string      { return e.name }
func (e *EnumSchema) Doc() string       { return e.doc }
func (e *EnumSchema) FullName() string  { return fullName(e.namespace, e.name) }

// Symbols returns the declared symbols in order.
func (e *EnumSchema) Symbols() []string {
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// HasSymbol reports whether sym is declared.
func (e *EnumSchema) HasSymbol(sym string) bool {
	_, ok := e.set[sym]
	return ok
}

// Default returns the default symbol, if any.
func (e *EnumSchema) Default() (string, bool) { return e.defaultSym, e.defaultSym != "" }

func (e *EnumSchema) String() string {
	if e.name != "" {
		return "enum " + e.FullName()
	}
	return "enum{" + strings.Join(e.symbols, ",") + "}"
}

// ListSchema is a homogeneous sequence.
type ListSchema struct{ elem DataSchema }

// ListOf returns a list schema. A nil element schema means Any.
func ListOf(elem DataSchema) *ListSchema {
	if elem == nil {
		elem = Any
	}
	return &ListSchema{elem: elem}
}

func (*ListSchema) Kind() Kind         { return KindList }
func (*ListSchema) sealed()            {}
func (l *ListSchema) Elem() DataSchema { return l.elem }
func (l *ListSchema) String() string   { return "list<" + l.elem.String() + ">" }

// MapSchema maps string keys to values of one schema.
type MapSchema struct{ value DataSchema }

// MapOf returns a map schema. A nil value schema means Any.
func MapOf(value DataSchema) *MapSchema {
	if value == nil {
		value = Any
	}
	return &MapSchema{value: value}
}

func (*MapSchema) Kind() Kind          { return KindMap }
func (*MapSchema) sealed()             {}
func (m *MapSchema) Value() DataSchema { return m.value }
func (m *MapSchema) String() string    { return "map<" + m.value.String() + ">" }

// UnionSchema admits any one of its alternatives. Alternative order is part
// of the contract: resolution tries them in declaration order.
type UnionSchema struct{ alts []DataSchema }

func (*UnionSchema) Kind() Kind { return KindUnion }
func (*UnionSchema) sealed()    {}

// Alternatives returns the alternatives in declaration order.
func (u *UnionSchema) Alternatives() []DataSchema {
	out := make([]DataSchema, len(u.alts))
	copy(out, u.alts)
	return out
}

// NumAlternatives returns the number of alternatives.
func (u *UnionSchema) NumAlternatives() int { return len(u.alts) }

// AlternativeAt returns the i-th alternative.
func (u *UnionSchema) AlternativeAt(i int) DataSchema { return u.alts[i] }

// Nullable reports whether null is one of the alternatives.
func (u *UnionSchema) Nullable() bool {
	for _, a := range u.alts {
		if a.Kind() == KindNull {
			return true
		}
	}
	return false
}

func (u *UnionSchema) String() string {
	parts := make([]string, len(u.alts))
	for i, a := range u.alts {
		parts[i] = a.String()
	}
	return "union<" + strings.Join(parts, ",") + ">"
}

// FixedSchema is a byte sequence of a fixed size.
type FixedSchema struct {
	namespace string
	name      string
	size      int
}

func (*FixedSchema) Kind() Kind          { return KindFixed }
func (*FixedSchema) sealed()             {}
func (f *FixedSchema) Namespace() string { return f.namespace }
func (f *FixedSchema) Name() string      { return f.name }
func (f *FixedSchema) FullName() string  { return fullName(f.namespace, f.name) }
func (f *FixedSchema) Size() int         { return f.size }

func (f *FixedSchema) String() string {
	if f.name != "" {
		return "fixed " + f.FullName()
	}
	return "fixed"
}

func fullName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}
