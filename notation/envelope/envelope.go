// Package envelope implements the binary envelope pseudo-notation. An
// envelope prefixes the payload of a concrete notation with a marker byte,
// the notation name and the fingerprint of the writer schema:
//
//	0x01 | uvarint len | name | fingerprint (8 bytes, big endian) | payload
//
// so one channel can carry values written under different notations and
// schema versions.
package envelope

import (
	"fmt"
	"sync"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

// Name is the registry key of the envelope notation.
const Name = "envelope"

// Catalog resolves notation names found in envelope headers.
// *notation.Registry satisfies it.
type Catalog interface {
	Notation(name string) (notation.Notation, error)
}

// Options configure the envelope.
type Options struct {
	// Inner is the notation payloads are written with.
	Inner string
	// Store remembers writer schemas. Nil means a fresh MemoryStore.
	Store SchemaStore
	// ReadUnknown decodes payloads whose writer schema is not in Store
	// with the reader schema, whatever their notation. Without it only
	// keyed notations are read that way.
	ReadUnknown bool
}

// keyed notations carry field names in the payload, so a reader schema
// can decode them without knowing the writer schema.
var keyed = map[string]bool{"json": true, "yaml": true, "protobuf": true}

// Notation implements notation.Notation by delegating payloads to the
// notation named in each header.
type Notation struct {
	inner       string
	catalog     Catalog
	store       SchemaStore
	readUnknown bool
	serdes      sync.Map // serdeKey -> *notation.Serde
}

type serdeKey struct {
	notation    string
	fingerprint uint64
	isKey       bool
}

// New returns an envelope writing with opts.Inner. The catalog is consulted
// lazily, so the envelope may be registered in the registry it reads from.
func New(catalog Catalog, opts Options) *Notation {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	return &Notation{inner: opts.Inner, catalog: catalog, store: opts.Store, readUnknown: opts.ReadUnknown}
}

func (n *Notation) Name() string { return Name }

// Inner returns the name of the notation payloads are written with.
func (n *Notation) Inner() string { return n.inner }

func (n *Notation) innerNotation() (notation.Notation, error) {
	if n.inner == Name {
		return nil, fmt.Errorf("envelope cannot wrap itself")
	}
	return n.catalog.Notation(n.inner)
}

func (n *Notation) DefaultSchema() schema.DataSchema {
	if in, err := n.innerNotation(); err == nil {
		return in.DefaultSchema()
	}
	return schema.AnyStruct
}

func (n *Notation) NativeToData(expected schema.DataSchema, v any) (object.DataObject, error) {
	in, err := n.innerNotation()
	if err != nil {
		return nil, schemata.ConversionFailed("envelope.NativeToData", v, err)
	}
	return in.NativeToData(expected, v)
}

func (n *Notation) DataToNative(obj object.DataObject) (any, error) {
	in, err := n.innerNotation()
	if err != nil {
		return nil, schemata.ConversionFailed("envelope.DataToNative", object.Native(obj), err)
	}
	return in.DataToNative(obj)
}

// Remember records s as a possible writer schema and returns its
// fingerprint.
func (n *Notation) Remember(s schema.DataSchema) (uint64, error) {
	fp, err := schema.Fingerprint(s)
	if err != nil {
		return 0, err
	}
	n.store.Put(fp, s)
	return fp, nil
}

// SerdeFor binds the inner notation to s. Reads accept envelopes from any
// registered notation; payloads written under another known schema are
// decoded with that schema and projected onto s when s is assignable from
// it.
func (n *Notation) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	in, err := n.innerNotation()
	if err != nil {
		return nil, schemata.NoSerdeFor(Name, fmt.Sprintf("inner notation %q (%v)", n.inner, err))
	}
	inner, err := in.SerdeFor(s, isKey)
	if err != nil {
		return nil, err
	}
	fp, err := n.Remember(s)
	if err != nil {
		return nil, schemata.DefinitionError("envelope.SerdeFor", err)
	}
	n.serdes.Store(serdeKey{n.inner, fp, isKey}, inner)
	h := Header{Notation: n.inner, Fingerprint: fp}
	return &notation.Serde{
		Notation: Name,
		Schema:   s,
		IsKey:    isKey,
		Serializer: notation.SerializerFunc(func(obj object.DataObject) ([]byte, error) {
			payload, err := inner.Serialize(obj)
			if err != nil {
				return nil, err
			}
			return Append(make([]byte, 0, len(payload)+len(h.Notation)+10), h, payload), nil
		}),
		Deserializer: notation.DeserializerFunc(func(data []byte) (object.DataObject, error) {
			return n.read(s, fp, isKey, data)
		}),
	}, nil
}

func (n *Notation) read(reader schema.DataSchema, readerFP uint64, isKey bool, data []byte) (object.DataObject, error) {
	const op = "envelope.Deserialize"
	h, payload, err := Split(data)
	if err != nil {
		return nil, schemata.ConversionFailed(op, len(data), err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	writer := reader
	if h.Fingerprint != readerFP {
		ws, ok := n.store.Get(h.Fingerprint)
		switch {
		case ok:
			writer = ws
		case !n.readUnknown && !keyed[h.Notation]:
			return nil, schemata.ConversionFailed(op, len(data),
				fmt.Errorf("unknown writer schema %016x", h.Fingerprint),
				schemata.NewIssue("/", schemata.CodeUnknownSchema,
					fmt.Sprintf("%s payload written under fingerprint %016x", h.Notation, h.Fingerprint)))
		}
	}
	if writer != reader && !schema.IsAssignableFrom(reader, writer) {
		return nil, schemata.ConversionFailed(op, len(data),
			fmt.Errorf("writer schema %s cannot be read as %s", writer, reader),
			schemata.NewIssue("/", schemata.CodeNotAssignable, fmt.Sprintf("writer %s, reader %s", writer, reader)))
	}
	keyFP := h.Fingerprint
	if writer == reader {
		keyFP = readerFP
	}
	serde, err := n.serdeFor(h.Notation, keyFP, writer, isKey)
	if err != nil {
		return nil, schemata.ConversionFailed(op, len(data), err,
			schemata.NewIssue("/", schemata.CodeUnknownNotation, err.Error()))
	}
	obj, err := serde.Deserialize(payload)
	if err != nil || writer == reader {
		return obj, err
	}
	return object.From(reader, Project(reader, object.Native(obj)))
}

func (n *Notation) serdeFor(name string, fp uint64, s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	key := serdeKey{name, fp, isKey}
	if cached, ok := n.serdes.Load(key); ok {
		return cached.(*notation.Serde), nil
	}
	if name == Name {
		return nil, fmt.Errorf("nested envelopes are not supported")
	}
	nt, err := n.catalog.Notation(name)
	if err != nil {
		return nil, err
	}
	serde, err := nt.SerdeFor(s, isKey)
	if err != nil {
		return nil, err
	}
	actual, _ := n.serdes.LoadOrStore(key, serde)
	return actual.(*notation.Serde), nil
}

// Project drops struct fields of v that reader does not declare, recursing
// through lists, maps and unions, so a value written under a newer schema
// can be boxed under an older one.
func Project(reader schema.DataSchema, v any) any {
	switch t := reader.(type) {
	case *schema.StructSchema:
		m, ok := v.(map[string]any)
		if !ok || t.Open() {
			return v
		}
		out := make(map[string]any, len(m))
		for _, f := range t.Fields() {
			if val, ok := m[f.Name()]; ok {
				out[f.Name()] = Project(f.Schema(), val)
			}
		}
		return out
	case *schema.ListSchema:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = Project(t.Elem(), it)
		}
		return out
	case *schema.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, it := range m {
			out[k] = Project(t.Value(), it)
		}
		return out
	case *schema.UnionSchema:
		for _, alt := range t.Alternatives() {
			if p := Project(alt, v); schema.Matches(alt, p) {
				return p
			}
		}
	}
	return v
}
