package avro

import (
	"fmt"
	"strconv"

	gojson "github.com/goccy/go-json"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/native"
	"github.com/reoring/schemata/schema"
)

// generator renders portable schemas as Avro schema JSON. Named types are
// defined on first use and referenced by full name afterwards; anonymous
// structs, enums and fixeds get generated names.
type generator struct {
	names   map[schema.DataSchema]string
	defined map[string]schema.DataSchema
	anon    int
}

func newGenerator() *generator {
	return &generator{names: map[schema.DataSchema]string{}, defined: map[string]schema.DataSchema{}}
}

// GenerateSchema returns the Avro schema JSON of s.
func GenerateSchema(s schema.DataSchema) (string, error) {
	g := newGenerator()
	tree, err := g.avsc(s, "")
	if err != nil {
		return "", err
	}
	return marshalTree(tree)
}

func marshalTree(tree any) (string, error) {
	b, err := gojson.Marshal(tree)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// branch returns the name goavro uses for s as a union member.
func (g *generator) branch(s schema.DataSchema) string {
	switch t := s.(type) {
	case *schema.PrimitiveSchema:
		return t.Kind().String()
	case *schema.ListSchema:
		return "array"
	case *schema.MapSchema:
		return "map"
	}
	return g.names[s]
}

func (g *generator) avsc(s schema.DataSchema, enclosingNS string) (any, error) {
	switch t := s.(type) {
	case *schema.PrimitiveSchema:
		return t.Kind().String(), nil
	case *schema.AnySchema:
		return nil, fmt.Errorf("any values have no Avro type")
	case *schema.ListSchema:
		items, err := g.avsc(t.Elem(), enclosingNS)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case *schema.MapSchema:
		values, err := g.avsc(t.Value(), enclosingNS)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "map", "values": values}, nil
	case *schema.UnionSchema:
		out := make([]any, 0, t.NumAlternatives())
		for _, alt := range t.Alternatives() {
			a, err := g.avsc(alt, enclosingNS)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	case *schema.EnumSchema:
		full, ns, name, done := g.name(t, t.Namespace(), t.Name(), enclosingNS)
		if done {
			return full, nil
		}
		m := named("enum", ns, name)
		m["symbols"] = t.Symbols()
		if d, ok := t.Default(); ok {
			m["default"] = d
		}
		if t.Doc() != "" {
			m["doc"] = t.Doc()
		}
		return m, nil
	case *schema.FixedSchema:
		full, ns, name, done := g.name(t, t.Namespace(), t.Name(), enclosingNS)
		if done {
			return full, nil
		}
		m := named("fixed", ns, name)
		m["size"] = t.Size()
		return m, nil
	case *schema.StructSchema:
		if t.Open() {
			return nil, fmt.Errorf("open structs have no Avro type")
		}
		full, ns, name, done := g.name(t, t.Namespace(), t.Name(), enclosingNS)
		if done {
			return full, nil
		}
		fields := make([]any, 0, t.NumFields())
		for _, f := range t.Fields() {
			fm, err := g.field(f, ns)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name(), err)
			}
			fields = append(fields, fm)
		}
		m := named("record", ns, name)
		m["fields"] = fields
		if t.Doc() != "" {
			m["doc"] = t.Doc()
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported schema %v", s)
}

// name assigns the Avro name of a named schema. done reports that an equal
// type was defined before and must be referenced by its full name.
func (g *generator) name(s schema.DataSchema, ns, name, enclosingNS string) (full, outNS, outName string, done bool) {
	if full, ok := g.names[s]; ok {
		return full, "", "", true
	}
	if ns == "" {
		ns = enclosingNS
	}
	if name == "" {
		g.anon++
		name = s.Kind().String() + "_" + strconv.Itoa(g.anon)
	}
	full = name
	if ns != "" {
		full = ns + "." + name
	}
	if prev, ok := g.defined[full]; ok && schema.Equal(prev, s) {
		g.names[s] = full
		return full, "", "", true
	}
	g.names[s] = full
	g.defined[full] = s
	return full, ns, name, false
}

func named(typ, ns, name string) map[string]any {
	m := map[string]any{"type": typ, "name": name}
	if ns != "" {
		m["namespace"] = ns
	}
	return m
}

// optional reports whether f is written as a ["null", T] union.
func optional(f *schema.DataField) bool {
	if f.Required() {
		return false
	}
	if u, ok := f.Schema().(*schema.UnionSchema); ok && u.Nullable() {
		return false
	}
	return f.Schema().Kind() != schema.KindNull
}

func (g *generator) field(f *schema.DataField, ns string) (map[string]any, error) {
	typ, err := g.avsc(f.Schema(), ns)
	if err != nil {
		return nil, err
	}
	m := map[string]any{"name": f.Name()}
	if f.Doc() != "" {
		m["doc"] = f.Doc()
	}
	def, hasDefault := f.Default()
	if optional(f) {
		// Avro forbids a union directly inside a union, so the members of
		// a union field join the null branch.
		members := []any{typ}
		if alts, ok := typ.([]any); ok {
			members = alts
		}
		if hasDefault && def != nil {
			m["type"] = append(members, "null")
			m["default"] = defaultValue(f.Schema(), def)
		} else {
			m["type"] = append([]any{"null"}, members...)
			m["default"] = nil
		}
		return m, nil
	}
	m["type"] = typ
	if hasDefault {
		m["default"] = defaultValue(f.Schema(), def)
	}
	return m, nil
}

// defaultValue renders a native default in Avro JSON form: bytes as
// ISO-8859-1 strings, union defaults in terms of the first alternative.
func defaultValue(s schema.DataSchema, v any) any {
	if u, ok := s.(*schema.UnionSchema); ok {
		if u.NumAlternatives() > 0 {
			return defaultValue(u.AlternativeAt(0), v)
		}
		return v
	}
	if b, ok := v.([]byte); ok {
		r := make([]rune, len(b))
		for i, c := range b {
			r[i] = rune(c)
		}
		return string(r)
	}
	if m, ok := native.Map(v); ok {
		if st, ok := s.(*schema.StructSchema); ok {
			out := make(map[string]any, len(m))
			for k, val := range m {
				if f, ok := st.Field(k); ok {
					out[k] = defaultValue(f.Schema(), val)
				}
			}
			return out
		}
	}
	return v
}

// ParseSchema maps an Avro schema JSON document to a portable schema.
// Fields typed ["null", T] with a null default become optional fields of
// type T; float becomes double; logical types map to their underlying type.
func ParseSchema(avsc string) (schema.DataSchema, error) {
	var tree any
	if err := gojson.Unmarshal([]byte(avsc), &tree); err != nil {
		return nil, schemata.DefinitionError("avro.ParseSchema", err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	p := &parser{named: map[string]schema.DataSchema{}}
	s, err := p.parse(tree, "")
	if err != nil {
		return nil, schemata.DefinitionError("avro.ParseSchema", err,
			schemata.NewIssue("/", schemata.CodeInvalidSchema, err.Error()))
	}
	return s, nil
}

type parser struct {
	named map[string]schema.DataSchema
}

func (p *parser) parse(tree any, ns string) (schema.DataSchema, error) {
	switch t := tree.(type) {
	case string:
		return p.byName(t, ns)
	case []any:
		alts := make([]schema.DataSchema, 0, len(t))
		for _, a := range t {
			s, err := p.parse(a, ns)
			if err != nil {
				return nil, err
			}
			alts = append(alts, s)
		}
		u, err := schema.UnionOf(alts...)
		if err != nil {
			return nil, err
		}
		return u, nil
	case map[string]any:
		return p.complex(t, ns)
	}
	return nil, fmt.Errorf("unexpected schema element %s", schemata.DescribeValue(tree))
}

func (p *parser) byName(name, ns string) (schema.DataSchema, error) {
	switch name {
	case "null":
		return schema.Null, nil
	case "boolean":
		return schema.Boolean, nil
	case "int":
		return schema.Int, nil
	case "long":
		return schema.Long, nil
	case "float", "double":
		return schema.Double, nil
	case "bytes":
		return schema.Bytes, nil
	case "string":
		return schema.String, nil
	}
	if s, ok := p.named[name]; ok {
		return s, nil
	}
	if s, ok := p.named[qualify(ns, name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name
		}
	}
	return ns + "." + name
}

func splitName(full string) (ns, name string) {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' {
			return full[:i], full[i+1:]
		}
	}
	return "", full
}

func (p *parser) complex(m map[string]any, enclosingNS string) (schema.DataSchema, error) {
	typ, _ := m["type"].(string)
	if nested, ok := m["type"].(map[string]any); ok {
		return p.complex(nested, enclosingNS)
	}
	if nested, ok := m["type"].([]any); ok {
		return p.parse(nested, enclosingNS)
	}
	str := func(k string) string { s, _ := m[k].(string); return s }
	ns, name := str("namespace"), str("name")
	if ns == "" {
		ns = enclosingNS
	}
	if n2, local := splitName(name); n2 != "" {
		ns, name = n2, local
	}
	switch typ {
	case "array":
		items, err := p.parse(m["items"], enclosingNS)
		if err != nil {
			return nil, err
		}
		return schema.ListOf(items), nil
	case "map":
		values, err := p.parse(m["values"], enclosingNS)
		if err != nil {
			return nil, err
		}
		return schema.MapOf(values), nil
	case "enum":
		raw, _ := m["symbols"].([]any)
		syms := make([]string, 0, len(raw))
		for _, r := range raw {
			s, _ := r.(string)
			syms = append(syms, s)
		}
		e, err := schema.Enum(ns, name, syms...).Doc(str("doc")).Default(str("default")).Build()
		if err != nil {
			return nil, err
		}
		p.named[qualify(ns, name)] = e
		return e, nil
	case "fixed":
		size, _ := native.Float(m["size"])
		f, err := schema.NewFixed(ns, name, int(size))
		if err != nil {
			return nil, err
		}
		p.named[qualify(ns, name)] = f
		return f, nil
	case "record", "error":
		return p.record(m, ns, name, str("doc"))
	}
	if typ != "" {
		return p.byName(typ, enclosingNS)
	}
	return nil, fmt.Errorf("schema element without type")
}

func (p *parser) record(m map[string]any, ns, name, doc string) (schema.DataSchema, error) {
	b := schema.Struct(ns, name).Doc(doc)
	raw, _ := m["fields"].([]any)
	for _, rf := range raw {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %s: field must be an object", name)
		}
		fname, _ := fm["name"].(string)
		fs, err := p.parse(fm["type"], ns)
		if err != nil {
			return nil, fmt.Errorf("record %s field %s: %w", name, fname, err)
		}
		var opts []schema.FieldOption
		if d, ok := fm["doc"].(string); ok {
			opts = append(opts, schema.Doc(d))
		}
		def, hasDefault := fm["default"]
		if inner, ok := optionalType(fs, def, hasDefault); ok {
			fs = inner
			if def != nil {
				opts = append(opts, schema.Default(parsedDefault(fs, def)))
			}
		} else {
			opts = append(opts, schema.Required())
			if hasDefault {
				opts = append(opts, schema.Default(parsedDefault(fs, def)))
			}
		}
		b.Field(fname, fs, opts...)
	}
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	p.named[qualify(ns, name)] = s
	return s, nil
}

// optionalType recognizes the two shapes optional fields are written in:
// ["null", T...] defaulting to null and [T..., "null"] with a T default.
// Several T members make the field an optional union.
func optionalType(s schema.DataSchema, def any, hasDefault bool) (schema.DataSchema, bool) {
	u, ok := s.(*schema.UnionSchema)
	n := 0
	if ok {
		n = u.NumAlternatives()
	}
	if !hasDefault || n < 2 {
		return nil, false
	}
	alts := u.Alternatives()
	var rest []schema.DataSchema
	switch {
	case alts[0].Kind() == schema.KindNull && def == nil:
		rest = alts[1:]
	case alts[n-1].Kind() == schema.KindNull && def != nil:
		rest = alts[:n-1]
	default:
		return nil, false
	}
	for _, a := range rest {
		if a.Kind() == schema.KindNull {
			return nil, false
		}
	}
	if len(rest) == 1 {
		return rest[0], true
	}
	inner, err := schema.UnionOf(rest...)
	if err != nil {
		return nil, false
	}
	return inner, true
}

// parsedDefault converts an Avro JSON default to the native form of s.
func parsedDefault(s schema.DataSchema, v any) any {
	switch s.Kind() {
	case schema.KindBytes, schema.KindFixed:
		if str, ok := v.(string); ok {
			b := make([]byte, 0, len(str))
			for _, r := range str {
				b = append(b, byte(r))
			}
			return b
		}
	case schema.KindInt, schema.KindLong:
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	case schema.KindUnion:
		u := s.(*schema.UnionSchema)
		if u.NumAlternatives() > 0 {
			return parsedDefault(u.AlternativeAt(0), v)
		}
	}
	return v
}
