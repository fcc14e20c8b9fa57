// Package yaml is the YAML notation. Documents hold a single mapping or
// sequence; bytes travel as base64 strings.
package yaml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Name is the registry key of the YAML notation.
const Name = "yaml"

// DefaultSchema is any mapping or sequence.
var DefaultSchema = schema.MustUnion(schema.AnyStruct, schema.ListOf(schema.Any))

type Options struct {
	Ambiguity object.Ambiguity
	// Indent is the number of spaces per nesting level when writing.
	// Zero means 2.
	Indent int
}

// Notation implements notation.Notation for YAML.
type Notation struct {
	opts Options
}

// New returns a YAML notation.
func New(opts Options) *Notation {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	return &Notation{opts: opts}
}

func (n *Notation) Name() string                     { return Name }
func (n *Notation) DefaultSchema() schema.DataSchema { return DefaultSchema }

func (n *Notation) NativeToData(expected schema.DataSchema, v any) (object.DataObject, error) {
	if expected == nil {
		return object.Infer(v)
	}
	return object.From(expected, v,
		object.WithAmbiguity(n.opts.Ambiguity),
		object.WithBytesDecoder(base64.StdEncoding.DecodeString))
}

func (n *Notation) DataToNative(obj object.DataObject) (any, error) {
	return toTextTree(object.Native(obj)), nil
}

func toTextTree(v any) any {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case []any:
		for i := range x {
			x[i] = toTextTree(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = toTextTree(x[k])
		}
		return x
	}
	return v
}

// Parse decodes exactly one YAML document. Repeated mapping keys are
// rejected by the decoder.
func (n *Notation) Parse(data []byte) (any, error) {
	const op = "yaml.Parse"
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, schemata.ConversionFailed(op, string(data), err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, schemata.ConversionFailed(op, string(data), fmt.Errorf("more than one document"),
			schemata.NewIssue("/", schemata.CodeParseError, "more than one document"))
	}
	timestampsAsText(&doc)
	var tree any
	if err := doc.Decode(&tree); err != nil {
		return nil, schemata.ConversionFailed(op, string(data), err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	return normalize(tree), nil
}

// timestampsAsText keeps unquoted timestamps as the strings they are in the
// document; the value model has no time type.
func timestampsAsText(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		timestampsAsText(c)
	}
}

// normalize turns the map[any]any values yaml.v3 produces for non-string
// keys into map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = normalize(val)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	}
	return v
}

// SerdeFor returns a serde for Struct, List and Map schemas and unions of
// those.
func (n *Notation) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	if err := notation.RequireStructured(Name, s); err != nil {
		return nil, err
	}
	return &notation.Serde{
		Notation: Name,
		Schema:   s,
		IsKey:    isKey,
		Serializer: notation.SerializerFunc(func(obj object.DataObject) ([]byte, error) {
			if err := notation.CheckOutgoing("yaml.Serialize", s, obj); err != nil {
				return nil, err
			}
			tree, _ := n.DataToNative(obj)
			var buf bytes.Buffer
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(n.opts.Indent)
			if err := enc.Encode(tree); err != nil {
				return nil, schemata.ConversionFailed("yaml.Serialize", tree, err)
			}
			if err := enc.Close(); err != nil {
				return nil, schemata.ConversionFailed("yaml.Serialize", tree, err)
			}
			return buf.Bytes(), nil
		}),
		Deserializer: notation.DeserializerFunc(func(data []byte) (object.DataObject, error) {
			tree, err := n.Parse(data)
			if err != nil {
				return nil, err
			}
			return n.NativeToData(s, tree)
		}),
	}, nil
}
