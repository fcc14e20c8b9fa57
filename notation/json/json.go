// Package json is the JSON notation. Documents are parsed through the
// token engine (duplicate keys and excessive nesting rejected, numbers kept
// exact) and written with goccy/go-json. Every serde also carries a JSON
// Schema derived from its portable schema, compiled with gojsonschema.
package json

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/engine"
	js "github.com/reoring/schemata/jsonschema"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Name is the registry key of the JSON notation.
const Name = "json"

// DefaultSchema is any JSON object or array.
var DefaultSchema = schema.MustUnion(schema.AnyStruct, schema.ListOf(schema.Any))

// Options configure the notation.
type Options struct {
	// MaxDepth limits nesting while parsing. Zero means unlimited.
	MaxDepth int
	// AllowDuplicateKeys keeps the last value of a repeated object key
	// instead of rejecting the document.
	AllowDuplicateKeys bool
	// ValidateNative additionally checks every value against the derived
	// JSON Schema.
	ValidateNative bool
	Ambiguity      object.Ambiguity
}

// Notation implements notation.Notation for JSON.
type Notation struct {
	opts Options
}

// New returns a JSON notation.
func New(opts Options) *Notation { return &Notation{opts: opts} }

func (n *Notation) Name() string                     { return Name }
func (n *Notation) DefaultSchema() schema.DataSchema { return DefaultSchema }

func (n *Notation) boxOptions() []object.Option {
	return []object.Option{
		object.WithAmbiguity(n.opts.Ambiguity),
		object.WithBytesDecoder(base64.StdEncoding.DecodeString),
	}
}

// NativeToData boxes a decoded JSON tree. Base64 strings are accepted where
// bytes are declared.
func (n *Notation) NativeToData(expected schema.DataSchema, v any) (object.DataObject, error) {
	if expected == nil {
		return object.Infer(v)
	}
	return object.From(expected, v, n.boxOptions()...)
}

// DataToNative unboxes obj into a tree go-json can marshal. Bytes become
// base64 strings.
func (n *Notation) DataToNative(obj object.DataObject) (any, error) {
	return toJSONTree(object.Native(obj)), nil
}

func toJSONTree(v any) any {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case []any:
		for i := range x {
			x[i] = toJSONTree(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = toJSONTree(x[k])
		}
		return x
	}
	return v
}

// Parse decodes one JSON document into a native tree.
func (n *Notation) Parse(data []byte) (any, error) {
	opt := engine.EnforceOptions{OnDuplicate: engine.DupError, MaxDepth: n.opts.MaxDepth}
	if n.opts.AllowDuplicateKeys {
		opt.OnDuplicate = engine.DupIgnore
	}
	v, err := engine.Decode(data, opt)
	if err != nil {
		code := schemata.CodeParseError
		path := "/"
		if ie, ok := err.(engine.IssueError); ok {
			code, path = ie.Code, ie.Path
		}
		return nil, schemata.ConversionFailed("json.Parse", string(truncate(data)), err,
			schemata.NewIssue(path, code, err.Error()))
	}
	return v, nil
}

func truncate(b []byte) []byte {
	if len(b) > 64 {
		return b[:64]
	}
	return b
}

// SerdeFor returns a serde for Struct, List and Map schemas and unions of
// those. Other roots have no JSON document form.
func (n *Notation) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	if err := notation.RequireStructured(Name, s); err != nil {
		return nil, err
	}
	v := &validator{schema: js.FromDataSchema(s)}
	if n.opts.ValidateNative {
		if err := v.compile(); err != nil {
			return nil, schemata.DefinitionError("json.SerdeFor", err)
		}
	}
	return &notation.Serde{
		Notation: Name,
		Schema:   s,
		IsKey:    isKey,
		Serializer: notation.SerializerFunc(func(obj object.DataObject) ([]byte, error) {
			if err := notation.CheckOutgoing("json.Serialize", s, obj); err != nil {
				return nil, err
			}
			tree, _ := n.DataToNative(obj)
			if n.opts.ValidateNative {
				if err := v.validate("json.Serialize", tree); err != nil {
					return nil, err
				}
			}
			b, err := gojson.Marshal(tree)
			if err != nil {
				return nil, schemata.ConversionFailed("json.Serialize", tree, err)
			}
			return b, nil
		}),
		Deserializer: notation.DeserializerFunc(func(data []byte) (object.DataObject, error) {
			tree, err := n.Parse(data)
			if err != nil {
				return nil, err
			}
			obj, err := n.NativeToData(s, tree)
			if err != nil {
				return nil, err
			}
			if n.opts.ValidateNative {
				if err := v.validate("json.Deserialize", tree); err != nil {
					return nil, err
				}
			}
			return obj, nil
		}),
	}, nil
}

// validator holds the compiled JSON Schema of one serde.
type validator struct {
	schema   *js.Schema
	once     sync.Once
	compiled *gojsonschema.Schema
	err      error
}

func (v *validator) compile() error {
	v.once.Do(func() {
		v.compiled, v.err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(v.schema))
	})
	return v.err
}

func (v *validator) validate(op string, tree any) error {
	if err := v.compile(); err != nil {
		return schemata.DefinitionError(op, err)
	}
	res, err := v.compiled.Validate(gojsonschema.NewGoLoader(tree))
	if err != nil {
		return schemata.ConversionFailed(op, tree, err)
	}
	if res.Valid() {
		return nil
	}
	var iss schemata.Issues
	for _, desc := range res.Errors() {
		iss = append(iss, schemata.NewIssue(pointer(desc.Field()), issueCode(desc.Type()), desc.Description()))
	}
	return schemata.ValidationFailed(op, strings.TrimPrefix(iss[0].Path, "/"), tree, iss...)
}

// pointer turns a gojsonschema field path ("(root)", "a.b.0") into a JSON
// pointer.
func pointer(field string) string {
	if field == "" || field == "(root)" {
		return "/"
	}
	return "/" + strings.ReplaceAll(strings.TrimPrefix(field, "(root)."), ".", "/")
}

func issueCode(t string) string {
	switch t {
	case "required":
		return schemata.CodeRequired
	case "additional_property_not_allowed":
		return schemata.CodeUnknownField
	case "enum":
		return schemata.CodeInvalidEnum
	case "number_any_of":
		return schemata.CodeUnionNoMatch
	}
	return schemata.CodeInvalidType
}

// TextConverter converts between JSON text held in strings and structured
// values: a string converted to a struct, list or map is parsed, a struct,
// list or map converted to a string is formatted.
func TextConverter(n *Notation) notation.Converter {
	return notation.ConverterFunc(func(obj object.DataObject, target schema.DataSchema) (object.DataObject, error) {
		const op = "json.Convert"
		if str, ok := obj.(*object.String); ok && notation.Structured(target) {
			tree, err := n.Parse([]byte(str.Value()))
			if err != nil {
				return nil, err
			}
			return n.NativeToData(target, tree)
		}
		if target.Kind() == schema.KindString {
			tree, _ := n.DataToNative(obj)
			b, err := gojson.Marshal(tree)
			if err != nil {
				return nil, schemata.ConversionFailed(op, tree, err)
			}
			return object.NewString(string(b)), nil
		}
		return nil, schemata.ConversionFailed(op, object.Native(obj),
			fmt.Errorf("cannot convert %s to %s", obj.Schema(), target))
	})
}
