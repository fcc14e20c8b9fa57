package notation

import (
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// NativeMapper converts between DataObjects and plain Go values for user
// code such as predicates and value mappers.
type NativeMapper struct {
	Options []object.Option
}

// ToDataObject boxes v. With a nil expected schema the schema is inferred:
// maps become open structs, slices lists, integers longs.
func (m NativeMapper) ToDataObject(expected schema.DataSchema, v any) (object.DataObject, error) {
	if expected == nil {
		return object.Infer(v)
	}
	return object.From(expected, v, m.Options...)
}

// FromDataObject unboxes obj into nil, bool, int32, int64, float64, string,
// []byte, []any and map[string]any values.
func (NativeMapper) FromDataObject(obj object.DataObject) any {
	return object.Native(obj)
}
