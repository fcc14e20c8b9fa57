package avro

import (
	"errors"
	"fmt"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Record builds a Struct field by field, checking every write with the Avro
// codec of the field's schema, so a record that accepts a value can always be
// serialized.
type Record struct {
	st *object.Struct
}

// NewRecord returns an empty record of s. It fails when s has no Avro form.
func NewRecord(s *schema.StructSchema, opts ...object.Option) (*Record, error) {
	if _, err := GenerateSchema(s); err != nil {
		return nil, schemata.NoSerdeFor(Name, fmt.Sprintf("%s values (%v)", s, err))
	}
	return &Record{st: object.NewStruct(s, opts...)}, nil
}

// RecordFrom wraps an existing struct value.
func RecordFrom(st *object.Struct) (*Record, error) {
	r, err := NewRecord(st.StructSchema())
	if err != nil {
		return nil, err
	}
	for _, k := range st.Keys() {
		if err := r.Put(k, st.Get(k)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Put boxes v for field name (strings become enum symbols, maps become
// nested structs), checks that the field's Avro codec can write it and
// stores it. A nil v behaves as for Struct.Put.
func (r *Record) Put(name string, v any) error {
	const op = "avro.Record.Put"
	f, ok := r.st.StructSchema().Field(name)
	if !ok || v == nil {
		return r.st.Put(name, v)
	}
	obj, err := object.From(f.Schema(), v)
	if err != nil {
		return onField(op, name, err)
	}
	fc, err := codecFor(f.Schema())
	if err != nil {
		return schemata.DefinitionError(op, fmt.Errorf("field %s of %s: %w", name, r.st.StructSchema(), err))
	}
	if _, err := fc.encode(op, obj); err != nil {
		return onField(op, name, err)
	}
	return r.st.Put(name, obj)
}

// Get returns the value of field name, or nil.
func (r *Record) Get(name string) object.DataObject { return r.st.Get(name) }

// Remove deletes an optional field.
func (r *Record) Remove(name string) error { return r.st.Remove(name) }

// Struct returns the underlying value, ready for any serializer.
func (r *Record) Struct() *object.Struct { return r.st }

// onField reports err as concerning field name of the record.
func onField(op, name string, err error) error {
	var se *schemata.Error
	if !errors.As(err, &se) {
		return err
	}
	out := *se
	out.Op, out.Field, out.Issues = op, name, se.Issues.Rebase("/"+name)
	return &out
}
