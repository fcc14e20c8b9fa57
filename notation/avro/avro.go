// Package avro is the Avro binary notation. Avro schemas are generated from
// portable schemas and compiled with goavro. Values are written as bare
// Avro binary, without object container or header.
package avro

import (
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Name is the registry key of the Avro notation.
const Name = "avro"

// Options configure the notation.
type Options struct {
	Ambiguity object.Ambiguity
}

// Notation implements notation.Notation for Avro.
type Notation struct {
	opts Options
}

// New returns an Avro notation.
func New(opts Options) *Notation { return &Notation{opts: opts} }

func (n *Notation) Name() string { return Name }

// DefaultSchema is the open struct. Avro cannot write it; pipelines using
// Avro must declare a schema.
func (n *Notation) DefaultSchema() schema.DataSchema { return schema.AnyStruct }

// NativeToData boxes a goavro native value. Union values still wrapped in
// their single-entry branch maps are unwrapped first.
func (n *Notation) NativeToData(expected schema.DataSchema, v any) (object.DataObject, error) {
	const op = "avro.NativeToData"
	if expected == nil {
		obj, err := object.Infer(v)
		if err != nil {
			return nil, schemata.ConversionFailed(op, v, err)
		}
		return obj, nil
	}
	c, err := codecFor(expected)
	if err != nil {
		return nil, schemata.ConversionFailed(op, v, err)
	}
	return object.From(expected, c.gen.fromAvro(expected, v), object.WithAmbiguity(n.opts.Ambiguity))
}

// DataToNative returns the goavro native form of obj under its own schema.
func (n *Notation) DataToNative(obj object.DataObject) (any, error) {
	const op = "avro.DataToNative"
	if obj == nil {
		return nil, nil
	}
	c, err := codecFor(obj.Schema())
	if err != nil {
		return nil, schemata.ConversionFailed(op, object.Native(obj), err)
	}
	v, err := c.gen.toAvro(obj.Schema(), obj)
	if err != nil {
		return nil, schemata.ConversionFailed(op, object.Native(obj), err)
	}
	return v, nil
}

// codec is the compiled Avro form of one portable schema.
type codec struct {
	schema schema.DataSchema
	gen    *generator
	goavro *goavro.Codec
}

type compiled struct {
	c   *codec
	err error
}

// codecs caches compile results by schema. Schemas are immutable, so an
// entry never goes stale.
var codecs sync.Map // schema.DataSchema -> compiled

func codecFor(s schema.DataSchema) (*codec, error) {
	if e, ok := codecs.Load(s); ok {
		r := e.(compiled)
		return r.c, r.err
	}
	c, err := compile(s)
	e, _ := codecs.LoadOrStore(s, compiled{c: c, err: err})
	r := e.(compiled)
	return r.c, r.err
}

func compile(s schema.DataSchema) (*codec, error) {
	g := newGenerator()
	tree, err := g.avsc(s, "")
	if err != nil {
		return nil, err
	}
	avsc, err := marshalTree(tree)
	if err != nil {
		return nil, err
	}
	c, err := goavro.NewCodec(avsc)
	if err != nil {
		return nil, fmt.Errorf("compile avro schema: %w", err)
	}
	return &codec{schema: s, gen: g, goavro: c}, nil
}

// encode rebinds obj to the codec schema so every value carries the exact
// Go type goavro expects, then writes it.
func (c *codec) encode(op string, obj object.DataObject) ([]byte, error) {
	bound, err := object.From(c.schema, obj)
	if err != nil {
		return nil, err
	}
	v, err := c.gen.toAvro(c.schema, bound)
	if err != nil {
		return nil, schemata.ConversionFailed(op, object.Native(obj), err)
	}
	b, err := c.goavro.BinaryFromNative(nil, v)
	if err != nil {
		return nil, schemata.ConversionFailed(op, object.Native(obj), err)
	}
	return b, nil
}

func (c *codec) decode(op string, data []byte, opts ...object.Option) (object.DataObject, error) {
	v, rest, err := c.goavro.NativeFromBinary(data)
	if err != nil {
		return nil, schemata.ConversionFailed(op, len(data), err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	if len(rest) > 0 {
		return nil, schemata.ConversionFailed(op, len(data), fmt.Errorf("%d trailing bytes", len(rest)),
			schemata.NewIssue("/", schemata.CodeParseError, "trailing data after record"))
	}
	return object.From(c.schema, c.gen.fromAvro(c.schema, v), opts...)
}

// SerdeFor compiles the Avro schema of s. Schemas containing Any values or
// open structs have no Avro form.
func (n *Notation) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	if s == nil {
		return nil, schemata.NoSerdeFor(Name, "a missing schema")
	}
	c, err := codecFor(s)
	if err != nil {
		return nil, schemata.NoSerdeFor(Name, fmt.Sprintf("%s values (%v)", s, err))
	}
	opts := []object.Option{object.WithAmbiguity(n.opts.Ambiguity)}
	return &notation.Serde{
		Notation: Name,
		Schema:   s,
		IsKey:    isKey,
		Serializer: notation.SerializerFunc(func(obj object.DataObject) ([]byte, error) {
			if err := notation.CheckOutgoing("avro.Serialize", s, obj); err != nil {
				return nil, err
			}
			return c.encode("avro.Serialize", obj)
		}),
		Deserializer: notation.DeserializerFunc(func(data []byte) (object.DataObject, error) {
			return c.decode("avro.Deserialize", data, opts...)
		}),
	}, nil
}
