// Package notation defines the pluggable wire-format layer: the Notation
// capability each format adapter provides, the Serde bound to one schema,
// and the Registry that maps notation names to adapters.
//
// Notations perform no I/O; they turn DataObjects into bytes and back.
package notation

import (
	"fmt"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Notation is a wire-format adapter.
type Notation interface {
	// Name is the registry key, e.g. "json".
	Name() string
	// DefaultSchema is the schema assumed when a pipeline declares none.
	DefaultSchema() schema.DataSchema
	// NativeToData converts a decoded native value into a DataObject of the
	// expected schema. A nil expected schema infers one.
	NativeToData(expected schema.DataSchema, v any) (object.DataObject, error)
	// DataToNative converts a DataObject into the notation's native form.
	DataToNative(obj object.DataObject) (any, error)
	// SerdeFor binds a serializer/deserializer pair to s. It fails with a
	// NoSerde error, before any record is processed, when the notation
	// cannot carry values of s.
	SerdeFor(s schema.DataSchema, isKey bool) (*Serde, error)
}

// Serializer turns a value into bytes.
type Serializer interface {
	Serialize(obj object.DataObject) ([]byte, error)
}

// Deserializer turns bytes into a value.
type Deserializer interface {
	Deserialize(data []byte) (object.DataObject, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(obj object.DataObject) ([]byte, error)

func (f SerializerFunc) Serialize(obj object.DataObject) ([]byte, error) { return f(obj) }

// DeserializerFunc adapts a function to Deserializer.
type DeserializerFunc func(data []byte) (object.DataObject, error)

func (f DeserializerFunc) Deserialize(data []byte) (object.DataObject, error) { return f(data) }

// Serde is a serializer/deserializer pair bound to one schema under one
// notation.
type Serde struct {
	Notation string
	Schema   schema.DataSchema
	IsKey    bool
	Serializer
	Deserializer
}

// Converter re-expresses a value in a shape the owning notation understands,
// e.g. parsing a JSON string into a struct.
type Converter interface {
	Convert(obj object.DataObject, target schema.DataSchema) (object.DataObject, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(obj object.DataObject, target schema.DataSchema) (object.DataObject, error)

func (f ConverterFunc) Convert(obj object.DataObject, target schema.DataSchema) (object.DataObject, error) {
	return f(obj, target)
}

// Structured reports whether s is a Struct, List or Map, or a union of those.
// Text notations without a scalar document form accept only these roots.
func Structured(s schema.DataSchema) bool {
	switch t := s.(type) {
	case *schema.StructSchema, *schema.ListSchema, *schema.MapSchema:
		return true
	case *schema.UnionSchema:
		for _, alt := range t.Alternatives() {
			if !Structured(alt) {
				return false
			}
		}
		return true
	}
	return false
}

// RequireStructured returns a NoSerde error naming notation when s is not
// Structured.
func RequireStructured(notation string, s schema.DataSchema) error {
	if s == nil {
		return schemata.NoSerdeFor(notation, "a missing schema")
	}
	if !Structured(s) {
		return schemata.NoSerdeFor(notation, fmt.Sprintf("%s values", s))
	}
	return nil
}

// CheckOutgoing validates obj against s before it is written and requires
// structs to be complete.
func CheckOutgoing(op string, s schema.DataSchema, obj object.DataObject) error {
	if obj == nil {
		return schemata.ConversionFailed(op, nil, fmt.Errorf("nil value"))
	}
	if st, ok := obj.(*object.Struct); ok {
		if err := st.CheckComplete(); err != nil {
			return err
		}
	}
	return object.Validate(s, obj)
}
