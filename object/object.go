// Package object holds the typed value model: runtime values bound to, and
// always consistent with, a schema.DataSchema.
//
// Values are created through From, StructFrom or the typed constructors and
// mutated only through validating operations (Struct.Put, List.Append,
// Map.Put), so a value reachable from a container satisfies its declared
// schema at all times. Object graphs are not safe for concurrent mutation.
package object

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/reoring/schemata/internal/native"
	"github.com/reoring/schemata/schema"
)

// DataObject is the closed set of runtime value variants.
type DataObject interface {
	// Schema returns the schema the value is bound to.
	Schema() schema.DataSchema
	String() string
	sealed()
}

// Null is the null value.
type Null struct{}

// NullValue is the shared Null.
var NullValue = &Null{}

func (*Null) Schema() schema.DataSchema { return schema.Null }
func (*Null) String() string            { return "null" }
func (*Null) sealed()                   {}

// Scalar is the set of Go types carried by primitive values.
type Scalar interface {
	bool | int32 | int64 | float64 | string | []byte
}

// Primitive wraps a scalar with its type tag.
type Primitive[T Scalar] struct {
	schema schema.DataSchema
	value  T
}

type (
	Boolean = Primitive[bool]
	Int     = Primitive[int32]
	Long    = Primitive[int64]
	Double  = Primitive[float64]
	String  = Primitive[string]
	Bytes   = Primitive[[]byte]
)

func NewBoolean(v bool) *Boolean  { return &Boolean{schema: schema.Boolean, value: v} }
func NewInt(v int32) *Int         { return &Int{schema: schema.Int, value: v} }
func NewLong(v int64) *Long       { return &Long{schema: schema.Long, value: v} }
func NewDouble(v float64) *Double { return &Double{schema: schema.Double, value: v} }
func NewString(v string) *String  { return &String{schema: schema.String, value: v} }
func NewBytes(v []byte) *Bytes    { return &Bytes{schema: schema.Bytes, value: v} }

// newFixed binds b to a fixed schema. The caller guarantees the size.
func newFixed(s *schema.FixedSchema, b []byte) *Bytes { return &Bytes{schema: s, value: b} }

func (p *Primitive[T]) Schema() schema.DataSchema { return p.schema }
func (*Primitive[T]) sealed()                     {}

// Value returns the wrapped scalar.
func (p *Primitive[T]) Value() T { return p.value }

func (p *Primitive[T]) String() string {
	switch v := any(p.value).(type) {
	case string:
		return strconv.Quote(v)
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	}
	return fmt.Sprint(p.value)
}

// Enum is a symbol of an EnumSchema.
type Enum struct {
	schema *schema.EnumSchema
	symbol string
}

func (e *Enum) Schema() schema.DataSchema { return e.schema }
func (e *Enum) Symbol() string            { return e.symbol }
func (e *Enum) String() string            { return e.symbol }
func (*Enum) sealed()                     {}

// List is a homogeneous sequence.
type List struct {
	schema *schema.ListSchema
	items  []DataObject
	opts   Options
}

// NewList returns an empty list for elements of elem.
func NewList(elem schema.DataSchema, opts ...Option) *List {
	return &List{schema: schema.ListOf(elem), opts: newOptions(opts)}
}

func (l *List) Schema() schema.DataSchema { return l.schema }
func (*List) sealed()                     {}

// Elem returns the element schema.
func (l *List) Elem() schema.DataSchema { return l.schema.Elem() }
func (l *List) Len() int                { return len(l.items) }
func (l *List) At(i int) DataObject     { return l.items[i] }

// Items returns a copy of the elements.
func (l *List) Items() []DataObject {
	out := make([]DataObject, len(l.items))
	copy(out, l.items)
	return out
}

// Append validates v against the element schema and appends it.
func (l *List) Append(v any) error {
	obj, iss := box(l.schema.Elem(), plain(v), fmt.Sprintf("/%d", len(l.items)), l.opts)
	if len(iss) > 0 {
		return validationError("object.List.Append", "", v, iss)
	}
	l.items = append(l.items, obj)
	return nil
}

func (l *List) String() string { return describe(Native(l)) }

// Map maps string keys to values of one schema.
type Map struct {
	schema  *schema.MapSchema
	entries map[string]DataObject
	opts    Options
}

// NewMap returns an empty map for values of value.
func NewMap(value schema.DataSchema, opts ...Option) *Map {
	return &Map{schema: schema.MapOf(value), entries: map[string]DataObject{}, opts: newOptions(opts)}
}

func (m *Map) Schema() schema.DataSchema { return m.schema }
func (*Map) sealed()                     {}
func (m *Map) Len() int                  { return len(m.entries) }

// Get returns the value stored under key, or nil.
func (m *Map) Get(key string) DataObject { return m.entries[key] }

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string { return sortedKeys(m.entries) }

// Put validates v against the value schema and stores it under key.
func (m *Map) Put(key string, v any) error {
	obj, iss := box(m.schema.Value(), plain(v), native.Pointer("", key), m.opts)
	if len(iss) > 0 {
		return validationError("object.Map.Put", key, v, iss)
	}
	m.entries[key] = obj
	return nil
}

// Delete removes key.
func (m *Map) Delete(key string) { delete(m.entries, key) }

func (m *Map) String() string { return describe(Native(m)) }
