package object

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/native"
	"github.com/reoring/schemata/schema"
)

// Ambiguity selects how union resolution treats values that match more than
// one alternative.
type Ambiguity int

const (
	// FirstMatch resolves to the first matching alternative in declaration order.
	FirstMatch Ambiguity = iota
	// AmbiguityError rejects values that match several alternatives.
	AmbiguityError
)

// ParseAmbiguity maps the configuration spelling ("first_match", "error").
func ParseAmbiguity(s string) (Ambiguity, error) {
	switch s {
	case "", "first_match":
		return FirstMatch, nil
	case "error":
		return AmbiguityError, nil
	}
	return FirstMatch, fmt.Errorf("unknown union ambiguity strategy %q", s)
}

func (a Ambiguity) String() string {
	if a == AmbiguityError {
		return "error"
	}
	return "first_match"
}

// Options tune how native values are boxed.
type Options struct {
	Ambiguity Ambiguity
	// DecodeBytes converts strings found where bytes are declared, for
	// notations that carry bytes as text. Nil rejects such strings.
	DecodeBytes func(string) ([]byte, error)
}

type Option func(*Options)

// WithAmbiguity sets the union ambiguity strategy.
func WithAmbiguity(a Ambiguity) Option { return func(o *Options) { o.Ambiguity = a } }

// WithBytesDecoder sets the string-to-bytes decoder.
func WithBytesDecoder(f func(string) ([]byte, error)) Option {
	return func(o *Options) { o.DecodeBytes = f }
}

func newOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// From builds a DataObject of schema s from a native value tree. DataObjects
// inside v are accepted and re-validated against s. Values of a schema
// narrower than s are widened (an int stored where long is declared becomes
// a Long).
func From(s schema.DataSchema, v any, opts ...Option) (DataObject, error) {
	if s == nil {
		return Infer(v)
	}
	obj, iss := box(s, plain(v), "", newOptions(opts))
	if len(iss) > 0 {
		return nil, validationError("object.From", "", v, iss)
	}
	return obj, nil
}

// Validate checks that obj satisfies s, reporting every violation.
func Validate(s schema.DataSchema, obj DataObject) error {
	if _, iss := box(s, Native(obj), "", Options{}); len(iss) > 0 {
		return validationError("object.Validate", "", obj, iss)
	}
	return nil
}

func validationError(op, field string, v any, iss schemata.Issues) error {
	if field == "" && len(iss) > 0 {
		field = fieldOf(iss[0].Path)
	}
	return schemata.ValidationFailed(op, field, describable(v), iss...)
}

// fieldOf returns the first segment of an issue path.
func fieldOf(path string) string {
	if len(path) < 2 || path[0] != '/' {
		return ""
	}
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			return native.Unescape(path[1:i])
		}
	}
	return native.Unescape(path[1:])
}

func describable(v any) any {
	if obj, ok := v.(DataObject); ok {
		return Native(obj)
	}
	return v
}

// plain unwraps DataObjects so boxing only sees native values.
func plain(v any) any {
	if obj, ok := v.(DataObject); ok {
		return Native(obj)
	}
	return v
}

func issue(path, code, format string, args ...any) schemata.Issue {
	if path == "" {
		path = "/"
	}
	return schemata.NewIssue(path, code, fmt.Sprintf(format, args...))
}

func box(s schema.DataSchema, v any, path string, o Options) (DataObject, schemata.Issues) {
	switch t := s.(type) {
	case *schema.AnySchema:
		return infer(v, path)
	case *schema.UnionSchema:
		return boxUnion(t, v, path, o)
	case *schema.PrimitiveSchema:
		return boxPrimitive(t, v, path, o)
	case *schema.EnumSchema:
		sym, ok := v.(string)
		if !ok {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %s, got %s", t, schemata.DescribeValue(v))}
		}
		if !t.HasSymbol(sym) {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidEnum, "%q is not one of %v", sym, t.Symbols())}
		}
		return &Enum{schema: t, symbol: sym}, nil
	case *schema.FixedSchema:
		b, ok := bytesOf(v, o)
		if !ok || len(b) != t.Size() {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %d bytes, got %s", t.Size(), schemata.DescribeValue(v))}
		}
		return newFixed(t, b), nil
	case *schema.ListSchema:
		items, ok := native.List(v)
		if !ok {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %s, got %s", t, schemata.DescribeValue(v))}
		}
		out := &List{schema: t, items: make([]DataObject, 0, len(items)), opts: o}
		var iss schemata.Issues
		for i, it := range items {
			obj, ii := box(t.Elem(), it, native.Pointer(path, strconv.Itoa(i)), o)
			iss = append(iss, ii...)
			out.items = append(out.items, obj)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	case *schema.MapSchema:
		m, ok := native.Map(v)
		if !ok {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %s, got %s", t, schemata.DescribeValue(v))}
		}
		out := &Map{schema: t, entries: make(map[string]DataObject, len(m)), opts: o}
		var iss schemata.Issues
		for _, k := range sortedKeys(m) {
			obj, ii := box(t.Value(), m[k], native.Pointer(path, k), o)
			iss = append(iss, ii...)
			out.entries[k] = obj
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	case *schema.StructSchema:
		m, ok := native.Map(v)
		if !ok {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %s, got %s", t, schemata.DescribeValue(v))}
		}
		return boxStruct(t, m, path, o)
	}
	return nil, schemata.Issues{issue(path, schemata.CodeInvalidSchema, "unsupported schema %v", s)}
}

func boxUnion(u *schema.UnionSchema, v any, path string, o Options) (DataObject, schemata.Issues) {
	matches := schema.MatchAll(u, v)
	if len(matches) == 0 && o.DecodeBytes != nil {
		// text-carried bytes only match once decoded
		if str, ok := v.(string); ok {
			if b, err := o.DecodeBytes(str); err == nil {
				for i := 0; i < u.NumAlternatives(); i++ {
					if k := u.AlternativeAt(i).Kind(); k == schema.KindBytes || k == schema.KindFixed {
						if schema.Matches(u.AlternativeAt(i), b) {
							return box(u.AlternativeAt(i), b, path, o)
						}
					}
				}
			}
		}
	}
	switch {
	case len(matches) == 0:
		return nil, schemata.Issues{issue(path, schemata.CodeUnionNoMatch, "%s matches no alternative of %s", schemata.DescribeValue(v), u)}
	case len(matches) > 1 && o.Ambiguity == AmbiguityError:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = u.AlternativeAt(m).String()
		}
		return nil, schemata.Issues{issue(path, schemata.CodeUnionAmbiguous, "%s matches %v", schemata.DescribeValue(v), names)}
	}
	return box(u.AlternativeAt(matches[0]), v, path, o)
}

func boxPrimitive(p *schema.PrimitiveSchema, v any, path string, o Options) (DataObject, schemata.Issues) {
	mismatch := func() schemata.Issues {
		return schemata.Issues{issue(path, schemata.CodeInvalidType, "expected %s, got %s", p, schemata.DescribeValue(v))}
	}
	switch p.Kind() {
	case schema.KindNull:
		if v != nil {
			return nil, mismatch()
		}
		return NullValue, nil
	case schema.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		return NewBoolean(b), nil
	case schema.KindInt:
		i, ok := native.Integer(v)
		if !ok {
			return nil, mismatch()
		}
		if !native.FitsInt32(i) {
			return nil, schemata.Issues{issue(path, schemata.CodeOverflow, "%d does not fit in int", i)}
		}
		return NewInt(int32(i)), nil
	case schema.KindLong:
		i, ok := native.Integer(v)
		if !ok {
			return nil, mismatch()
		}
		return NewLong(i), nil
	case schema.KindDouble:
		f, ok := native.Float(v)
		if !ok {
			return nil, mismatch()
		}
		return NewDouble(f), nil
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		return NewString(s), nil
	case schema.KindBytes:
		b, ok := bytesOf(v, o)
		if !ok {
			return nil, mismatch()
		}
		return NewBytes(b), nil
	}
	return nil, mismatch()
}

func bytesOf(v any, o Options) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		if o.DecodeBytes == nil {
			return nil, false
		}
		out, err := o.DecodeBytes(b)
		return out, err == nil
	}
	return nil, false
}

// Infer boxes a native value without a declared schema. Integers become Long
// (int32 stays Int), floats Double, string-keyed maps open Structs and slices
// lists of Any. Any other Go type is rejected rather than stringified.
func Infer(v any) (DataObject, error) {
	obj, iss := infer(plain(v), "")
	if len(iss) > 0 {
		return nil, validationError("object.Infer", "", v, iss)
	}
	return obj, nil
}

func infer(v any, path string) (DataObject, schemata.Issues) {
	switch x := v.(type) {
	case nil:
		return NullValue, nil
	case DataObject:
		return x, nil
	case bool:
		return NewBoolean(x), nil
	case int32:
		return NewInt(x), nil
	case string:
		return NewString(x), nil
	case []byte:
		return NewBytes(x), nil
	case float32:
		return NewDouble(float64(x)), nil
	case float64:
		return NewDouble(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return NewLong(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "%s is not a finite number", string(x))}
		}
		return NewDouble(f), nil
	}
	if i, ok := native.Integer(v); ok {
		return NewLong(i), nil
	}
	if m, ok := native.Map(v); ok {
		out := NewStruct(schema.AnyStruct)
		var iss schemata.Issues
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
	if items, ok := native.List(v); ok {
		out := NewList(schema.Any)
		var iss schemata.Issues
		for i, it := range items {
			obj, ii := infer(it, native.Pointer(path, strconv.Itoa(i)))
			iss = append(iss, ii...)
			out.items = append(out.items, obj)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	}
	return nil, schemata.Issues{issue(path, schemata.CodeInvalidType, "%T values have no schemaless form", v)}
}

// Native converts obj to plain Go values: nil, bool, int32, int64, float64,
// string, []byte, []any and map[string]any. Enums become their symbol.
func Native(obj DataObject) any {
	switch x := obj.(type) {
	case nil, *Null:
		return nil
	case *Boolean:
		return x.value
	case *Int:
		return x.value
	case *Long:
		return x.value
	case *Double:
		return x.value
	case *String:
		return x.value
	case *Bytes:
		return x.value
	case *Enum:
		return x.symbol
	case *List:
		out := make([]any, len(x.items))
		for i, it := range x.items {
			out[i] = Native(it)
		}
		return out
	case *Map:
		out := make(map[string]any, len(x.entries))
		for k, v := range x.entries {
			out[k] = Native(v)
		}
		return out
	case *Struct:
		out := make(map[string]any, len(x.fields))
		for k, v := range x.fields {
			out[k] = Native(v)
		}
		return out
	}
	return nil
}

// Equal reports whether a and b hold the same value with the same kind.
func Equal(a, b DataObject) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Schema().Kind() != b.Schema().Kind() {
		return false
	}
	return reflect.DeepEqual(Native(a), Native(b))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describe(v any) string {
	b, err := gojson.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
