package object

import (
	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/native"
	"github.com/reoring/schemata/schema"
)

// Struct is a record bound to a StructSchema. Its keys are always a subset of
// the schema's field names, unless the schema is open.
type Struct struct {
	schema *schema.StructSchema
	fields map[string]DataObject
	opts   Options
}

// NewStruct returns an empty struct bound to s. A nil s means schema.AnyStruct.
func NewStruct(s *schema.StructSchema, opts ...Option) *Struct {
	if s == nil {
		s = schema.AnyStruct
	}
	return &Struct{schema: s, fields: map[string]DataObject{}, opts: newOptions(opts)}
}

// StructFrom builds a struct of schema s from a native map. Keys that are not
// fields of s are rejected, defaults fill absent fields and missing required
// fields are reported. Every problem is reported in one error.
func StructFrom(s *schema.StructSchema, m map[string]any, opts ...Option) (*Struct, error) {
	if s == nil {
		s = schema.AnyStruct
	}
	obj, iss := boxStruct(s, m, "", newOptions(opts))
	if len(iss) > 0 {
		return nil, validationError("object.StructFrom", "", m, iss)
	}
	return obj.(*Struct), nil
}

func (s *Struct) Schema() schema.DataSchema { return s.schema }
func (*Struct) sealed()                     {}

// StructSchema returns the bound schema.
func (s *Struct) StructSchema() *schema.StructSchema { return s.schema }

// Len returns the number of present fields.
func (s *Struct) Len() int { return len(s.fields) }

// Get returns the value of field name, or nil when absent.
func (s *Struct) Get(name string) DataObject { return s.fields[name] }

// Has reports whether field name holds a value.
func (s *Struct) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Keys returns the present field names, in declaration order for declared
// structs and sorted for open ones.
func (s *Struct) Keys() []string {
	if s.schema.Open() {
		return sortedKeys(s.fields)
	}
	out := make([]string, 0, len(s.fields))
	for _, f := range s.schema.Fields() {
		if _, ok := s.fields[f.Name()]; ok {
			out = append(out, f.Name())
		}
	}
	return out
}

// Put validates v against the declared schema of field name and stores it.
// v may be a native value or a DataObject; untyped maps written to struct
// fields become nested Structs, strings written to enum fields become Enums.
//
// A nil v stores the field default when one is declared, removes an optional
// field and is rejected for a required field without default. On error the
// struct is left unchanged.
func (s *Struct) Put(name string, v any) error {
	const op = "object.Struct.Put"
	v = plain(v)
	path := native.Pointer("", name)
	if s.schema.Open() {
		if v == nil {
			delete(s.fields, name)
			return nil
		}
		obj, iss := infer(v, path)
		if len(iss) > 0 {
			return schemata.ValidationFailed(op, name, v, iss...)
		}
		s.fields[name] = obj
		return nil
	}
	f, ok := s.schema.Field(name)
	if !ok {
		return schemata.ValidationFailed(op, name, v,
			issue(path, schemata.CodeUnknownField, "%s has no field %q", s.schema, name))
	}
	if v == nil {
		def, hasDefault := f.Default()
		switch {
		case hasDefault && def != nil:
			v = def
		case (hasDefault || f.Required()) && schema.Matches(f.Schema(), nil):
			s.fields[name] = NullValue
			return nil
		case f.Required():
			return schemata.ValidationFailed(op, name, v,
				issue(path, schemata.CodeRequired, "field %q of %s is required", name, s.schema))
		default:
			delete(s.fields, name)
			return nil
		}
	}
	obj, iss := box(f.Schema(), v, path, s.opts)
	if len(iss) == 0 {
		iss = checkConstant(f, obj, path, s.opts)
	}
	if len(iss) > 0 {
		return schemata.ValidationFailed(op, name, v, iss...)
	}
	s.fields[name] = obj
	return nil
}

// Remove deletes an optional field. Required fields cannot be removed.
func (s *Struct) Remove(name string) error {
	if f, ok := s.schema.Field(name); ok && f.Required() {
		return schemata.ValidationFailed("object.Struct.Remove", name, nil,
			issue(native.Pointer("", name), schemata.CodeRequired, "field %q of %s is required", name, s.schema))
	}
	delete(s.fields, name)
	return nil
}

// CheckComplete reports required fields that hold no value. Serializers call
// it before writing a struct built field by field.
func (s *Struct) CheckComplete() error {
	var iss schemata.Issues
	for _, f := range s.schema.Fields() {
		if f.Required() && !s.Has(f.Name()) {
			iss = append(iss, issue(native.Pointer("", f.Name()), schemata.CodeIncomplete, "required field %q has no value", f.Name()))
		}
	}
	if len(iss) > 0 {
		return validationError("object.Struct.CheckComplete", "", s, iss)
	}
	return nil
}

func (s *Struct) String() string { return describe(Native(s)) }

func boxStruct(t *schema.StructSchema, m map[string]any, path string, o Options) (DataObject, schemata.Issues) {
	out := &Struct{schema: t, fields: make(map[string]DataObject, len(m)), opts: o}
	var iss schemata.Issues
	if t.Open() {
		for _, k := range sortedKeys(m) {
			if m[k] == nil {
				continue
			}
			obj, ii := infer(m[k], native.Pointer(path, k))
			iss = append(iss, ii...)
			out.fields[k] = obj
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	}
	for _, k := range sortedKeys(m) {
		if _, ok := t.Field(k); !ok {
			iss = append(iss, issue(native.Pointer(path, k), schemata.CodeUnknownField, "%s has no field %q", t, k))
		}
	}
	for _, f := range t.Fields() {
		fpath := native.Pointer(path, f.Name())
		val := m[f.Name()]
		if val == nil {
			def, hasDefault := f.Default()
			switch {
			case hasDefault && def != nil:
				val = def
			case (hasDefault || f.Required()) && schema.Matches(f.Schema(), nil):
				out.fields[f.Name()] = NullValue
				continue
			case f.Required():
				iss = append(iss, issue(fpath, schemata.CodeRequired, "field %q of %s is required", f.Name(), t))
				continue
			default:
				continue
			}
		}
		obj, ii := box(f.Schema(), val, fpath, o)
		if len(ii) == 0 {
			ii = checkConstant(f, obj, fpath, o)
		}
		if len(ii) > 0 {
			iss = append(iss, ii...)
			continue
		}
		out.fields[f.Name()] = obj
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// checkConstant rejects a value of constant field f that differs from the
// field default.
func checkConstant(f *schema.DataField, obj DataObject, path string, o Options) schemata.Issues {
	if !f.Constant() {
		return nil
	}
	def, _ := f.Default()
	if want, iss := box(f.Schema(), def, path, o); len(iss) == 0 && Equal(want, obj) {
		return nil
	}
	return schemata.Issues{issue(path, schemata.CodeConstant, "field %q is constant %s", f.Name(), schemata.DescribeValue(def))}
}
