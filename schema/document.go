package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/internal/native"
)

// Schema documents describe a DataSchema as a JSON or YAML tree:
//
//	type: struct
//	namespace: io.example
//	name: Sensor
//	fields:
//	  - {name: name, type: string, required: true}
//	  - {name: value, type: double, required: true}
//	  - {name: unit, type: string}
//	  - {name: tags, type: {type: list, items: string}}
//
// A plain string names a primitive ("null", "boolean", "int", "long",
// "double", "string", "bytes", "any"); a sequence is a union.

// ParseDocument decodes a JSON or YAML schema document.
func ParseDocument(data []byte) (DataSchema, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, schemata.DefinitionError("schema.ParseDocument", err,
			schemata.NewIssue("/", schemata.CodeParseError, err.Error()))
	}
	return FromTree(tree)
}

// MarshalDocument encodes s as a YAML schema document.
func MarshalDocument(s DataSchema) ([]byte, error) {
	return yaml.Marshal(Tree(s, true))
}

// FromTree builds a schema from a decoded document tree.
func FromTree(tree any) (DataSchema, error) {
	var p problems
	s := fromTree("", tree, &p)
	if err := p.err("schema.FromTree"); err != nil {
		return nil, err
	}
	return s, nil
}

func fromTree(path string, tree any, p *problems) DataSchema {
	if path == "" {
		path = "/"
	}
	switch t := tree.(type) {
	case string:
		if s := primitiveByName(t); s != nil {
			return s
		}
		p.add(path, schemata.CodeInvalidSchema, "unknown type name %q", t)
		return nil
	case []any:
		alts := make([]DataSchema, 0, len(t))
		for i, a := range t {
			if s := fromTree(join(path, fmt.Sprint(i)), a, p); s != nil {
				alts = append(alts, s)
			}
		}
		return unionFromTree(path, alts, p)
	}
	m, ok := native.Map(tree)
	if !ok {
		p.add(path, schemata.CodeInvalidSchema, "expected a type name, a list or a mapping, got %s", schemata.DescribeValue(tree))
		return nil
	}
	typ, _ := m["type"].(string)
	str := func(k string) string { s, _ := m[k].(string); return s }
	switch typ {
	case "struct", "record":
		return structFromTree(path, m, p)
	case "enum":
		var syms []string
		raw, _ := native.List(m["symbols"])
		for _, r := range raw {
			s, ok := r.(string)
			if !ok {
				p.add(join(path, "symbols"), schemata.CodeInvalidSchema, "symbols must be strings")
				continue
			}
			syms = append(syms, s)
		}
		e, err := Enum(str("namespace"), str("name"), syms...).Doc(str("doc")).Default(str("default")).Build()
		if err != nil {
			p.mergeFrom(path, err)
			return nil
		}
		return e
	case "list", "array":
		elem := fromTree(join(path, "items"), orAny(m["items"]), p)
		if elem == nil {
			return nil
		}
		return ListOf(elem)
	case "map":
		val := fromTree(join(path, "values"), orAny(m["values"]), p)
		if val == nil {
			return nil
		}
		return MapOf(val)
	case "union":
		raw, ok := native.List(m["types"])
		if !ok {
			p.add(join(path, "types"), schemata.CodeInvalidSchema, "union needs a types list")
			return nil
		}
		return fromTree(path, raw, p)
	case "fixed":
		size, _ := native.Integer(m["size"])
		f, err := NewFixed(str("namespace"), str("name"), int(size))
		if err != nil {
			p.mergeFrom(path, err)
			return nil
		}
		return f
	case "":
		p.add(join(path, "type"), schemata.CodeInvalidSchema, "missing type")
		return nil
	}
	if s := primitiveByName(typ); s != nil {
		return s
	}
	p.add(join(path, "type"), schemata.CodeInvalidSchema, "unknown type name %q", typ)
	return nil
}

func structFromTree(path string, m map[string]any, p *problems) DataSchema {
	ns, _ := m["namespace"].(string)
	name, _ := m["name"].(string)
	doc, _ := m["doc"].(string)
	b := Struct(ns, name).Doc(doc)
	raw, _ := native.List(m["fields"])
	for i, rf := range raw {
		fpath := join(join(path, "fields"), fmt.Sprint(i))
		fm, ok := native.Map(rf)
		if !ok {
			p.add(fpath, schemata.CodeInvalidSchema, "field must be a mapping")
			continue
		}
		fname, _ := fm["name"].(string)
		fs := fromTree(join(fpath, "type"), fm["type"], p)
		if fs == nil {
			continue
		}
		var opts []FieldOption
		if req, _ := fm["required"].(bool); req {
			opts = append(opts, Required())
		}
		if c, _ := fm["constant"].(bool); c {
			opts = append(opts, Constant())
		}
		if d, ok := fm["doc"].(string); ok {
			opts = append(opts, Doc(d))
		}
		if idx, ok := native.Integer(fm["index"]); ok {
			opts = append(opts, Index(int(idx)))
		}
		if def, ok := fm["default"]; ok {
			opts = append(opts, Default(documentDefault(fs, def)))
		}
		b.Field(fname, fs, opts...)
	}
	s, err := b.Build()
	if err != nil {
		p.mergeFrom(path, err)
		return nil
	}
	return s
}

// documentDefault adapts document defaults for bytes fields, which documents
// can only spell as strings.
func documentDefault(s DataSchema, def any) any {
	if str, ok := def.(string); ok && (s.Kind() == KindBytes || s.Kind() == KindFixed) {
		return []byte(str)
	}
	return def
}

func unionFromTree(path string, alts []DataSchema, p *problems) DataSchema {
	u, err := UnionOf(alts...)
	if err != nil {
		p.mergeFrom(path, err)
		return nil
	}
	return u
}

func (p *problems) mergeFrom(base string, err error) {
	iss, ok := schemata.AsIssues(err)
	if !ok {
		p.add(base, schemata.CodeInvalidSchema, "%v", err)
		return
	}
	for _, it := range iss.Rebase(base) {
		p.add(it.Path, it.Code, "%s", it.Hint)
	}
}

func orAny(v any) any {
	if v == nil {
		return "any"
	}
	return v
}

func join(base, seg string) string {
	if base == "/" || base == "" {
		return "/" + seg
	}
	return base + "/" + seg
}

func primitiveByName(name string) DataSchema {
	switch name {
	case "null":
		return Null
	case "boolean", "bool":
		return Boolean
	case "int":
		return Int
	case "long":
		return Long
	case "double", "float":
		return Double
	case "string":
		return String
	case "bytes":
		return Bytes
	case "any":
		return Any
	}
	return nil
}

// Tree renders s as a document tree. withDocs controls whether
// documentation strings are included; the canonical form leaves them out.
func Tree(s DataSchema, withDocs bool) any {
	switch t := s.(type) {
	case *PrimitiveSchema:
		return t.kind.String()
	case *AnySchema:
		return "any"
	case *UnionSchema:
		out := make([]any, len(t.alts))
		for i, a := range t.alts {
			out[i] = Tree(a, withDocs)
		}
		return out
	case *ListSchema:
		return map[string]any{"type": "list", "items": Tree(t.elem, withDocs)}
	case *MapSchema:
		return map[string]any{"type": "map", "values": Tree(t.value, withDocs)}
	case *FixedSchema:
		m := map[string]any{"type": "fixed", "size": t.size}
		named(m, t.namespace, t.name, "", false)
		return m
	case *EnumSchema:
		m := map[string]any{"type": "enum", "symbols": t.Symbols()}
		named(m, t.namespace, t.name, t.doc, withDocs)
		if t.defaultSym != "" {
			m["default"] = t.defaultSym
		}
		return m
	case *StructSchema:
		m := map[string]any{"type": "struct"}
		named(m, t.namespace, t.name, t.doc, withDocs)
		fields := make([]any, len(t.fields))
		for i, f := range t.fields {
			fm := map[string]any{"name": f.name, "type": Tree(f.schema, withDocs), "index": f.index}
			if f.required {
				fm["required"] = true
			}
			if f.constant {
				fm["constant"] = true
			}
			if f.hasDefault {
				fm["default"] = treeDefault(f.def)
			}
			if withDocs && f.doc != "" {
				fm["doc"] = f.doc
			}
			fields[i] = fm
		}
		m["fields"] = fields
		return m
	}
	return nil
}

func treeDefault(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	if m, ok := native.Map(v); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(m))
		for _, k := range keys {
			out[k] = treeDefault(m[k])
		}
		return out
	}
	return v
}

func named(m map[string]any, ns, name, doc string, withDocs bool) {
	if ns != "" {
		m["namespace"] = ns
	}
	if name != "" {
		m["name"] = name
	}
	if withDocs && doc != "" {
		m["doc"] = doc
	}
}
