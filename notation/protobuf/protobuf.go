// Package protobuf carries values as serialized google.protobuf.Struct
// messages. The well-known Struct type has no integer or bytes kinds, so
// numbers travel as doubles and bytes as base64 strings; the declared schema
// restores both on read. Longs beyond 2^53 in magnitude have no exact double
// and are rejected on write.
package protobuf

import (
	"encoding/base64"
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/native"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Name is the registry key of the protobuf notation.
const Name = "protobuf"

type Options struct {
	Ambiguity object.Ambiguity
	// Deterministic orders map entries when marshaling.
	Deterministic bool
}

// Notation implements notation.Notation over structpb.
type Notation struct {
	opts Options
}

func New(opts Options) *Notation { return &Notation{opts: opts} }

func (n *Notation) Name() string                     { return Name }
func (n *Notation) DefaultSchema() schema.DataSchema { return schema.AnyStruct }

// NativeToData accepts a *structpb.Struct, a *structpb.Value or the plain
// tree AsMap returns.
func (n *Notation) NativeToData(expected schema.DataSchema, v any) (object.DataObject, error) {
	switch m := v.(type) {
	case *structpb.Struct:
		v = m.AsMap()
	case *structpb.Value:
		v = m.AsInterface()
	}
	if expected == nil {
		return object.Infer(v)
	}
	return object.From(expected, narrow(expected, v),
		object.WithAmbiguity(n.opts.Ambiguity),
		object.WithBytesDecoder(base64.StdEncoding.DecodeString))
}

// DataToNative returns obj as a *structpb.Value.
func (n *Notation) DataToNative(obj object.DataObject) (any, error) {
	const op = "protobuf.DataToNative"
	tree := object.Native(obj)
	if err := checkExact(op, tree); err != nil {
		return nil, err
	}
	v, err := structpb.NewValue(tree)
	if err != nil {
		return nil, schemata.ConversionFailed(op, tree, err)
	}
	return v, nil
}

// maxExact is the largest magnitude up to which every integer has an exact
// float64 form.
const maxExact = 1 << 53

// checkExact rejects integers a double cannot carry exactly.
func checkExact(op string, tree any) error {
	var iss schemata.Issues
	var walk func(path string, v any)
	walk = func(path string, v any) {
		switch x := v.(type) {
		case int64:
			if x > maxExact || x < -maxExact {
				p := path
				if p == "" {
					p = "/"
				}
				iss = append(iss, schemata.NewIssue(p, schemata.CodeOverflow,
					fmt.Sprintf("%d has no exact double form", x)))
			}
		case []any:
			for i, it := range x {
				walk(native.Pointer(path, fmt.Sprint(i)), it)
			}
		case map[string]any:
			for k, it := range x {
				walk(native.Pointer(path, k), it)
			}
		}
	}
	walk("", tree)
	if len(iss) == 0 {
		return nil
	}
	e := schemata.ConversionFailed(op, tree, fmt.Errorf("integer out of exact double range"), iss...)
	e.Field = fieldOf(iss[0].Path)
	return e
}

func fieldOf(path string) string {
	if len(path) < 2 {
		return ""
	}
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			return native.Unescape(path[1:i])
		}
	}
	return native.Unescape(path[1:])
}

// narrow converts doubles back to integers where s declares int or long
// and the double holds an integral value within the exact range.
func narrow(s schema.DataSchema, v any) any {
	switch t := s.(type) {
	case *schema.PrimitiveSchema:
		f, ok := v.(float64)
		if !ok {
			return v
		}
		switch t.Kind() {
		case schema.KindInt:
			if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
				return int32(f)
			}
		case schema.KindLong:
			if f == math.Trunc(f) && f >= -maxExact && f <= maxExact {
				return int64(f)
			}
		}
		return v
	case *schema.UnionSchema:
		for _, alt := range t.Alternatives() {
			if nv := narrow(alt, v); schema.Matches(alt, nv) {
				return nv
			}
		}
		return v
	case *schema.ListSchema:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = narrow(t.Elem(), it)
		}
		return out
	case *schema.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, it := range m {
			out[k] = narrow(t.Value(), it)
		}
		return out
	case *schema.StructSchema:
		m, ok := native.Map(v)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, it := range m {
			if f, ok := t.Field(k); ok {
				out[k] = narrow(f.Schema(), it)
				continue
			}
			out[k] = it
		}
		return out
	}
	return v
}

// rootMap reports whether s can be the root of a Struct message: a struct,
// a map, or a union of those.
func rootMap(s schema.DataSchema) bool {
	switch t := s.(type) {
	case *schema.StructSchema, *schema.MapSchema:
		return true
	case *schema.UnionSchema:
		for _, alt := range t.Alternatives() {
			if !rootMap(alt) {
				return false
			}
		}
		return true
	}
	return false
}

// SerdeFor returns a serde for struct and map roots.
func (n *Notation) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	if s == nil {
		return nil, schemata.NoSerdeFor(Name, "a missing schema")
	}
	if !rootMap(s) {
		return nil, schemata.NoSerdeFor(Name, fmt.Sprintf("%s values", s))
	}
	marshal := proto.MarshalOptions{Deterministic: n.opts.Deterministic}
	return &notation.Serde{
		Notation: Name,
		Schema:   s,
		IsKey:    isKey,
		Serializer: notation.SerializerFunc(func(obj object.DataObject) ([]byte, error) {
			const op = "protobuf.Serialize"
			if err := notation.CheckOutgoing(op, s, obj); err != nil {
				return nil, err
			}
			m, _ := native.Map(object.Native(obj))
			if err := checkExact(op, m); err != nil {
				return nil, err
			}
			msg, err := structpb.NewStruct(m)
			if err != nil {
				return nil, schemata.ConversionFailed(op, m, err)
			}
			b, err := marshal.Marshal(msg)
			if err != nil {
				return nil, schemata.ConversionFailed(op, m, err)
			}
			return b, nil
		}),
		Deserializer: notation.DeserializerFunc(func(data []byte) (object.DataObject, error) {
			const op = "protobuf.Deserialize"
			msg := &structpb.Struct{}
			if err := proto.Unmarshal(data, msg); err != nil {
				return nil, schemata.ConversionFailed(op, len(data), err,
					schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
			}
			return n.NativeToData(s, msg)
		}),
	}, nil
}
