package schema

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/i18n"
)

// problems collects every definition problem found while building a schema
// so callers see all of them at once.
type problems struct {
	merr *multierror.Error
	iss  schemata.Issues
}

func (p *problems) add(path, code, format string, args ...any) {
	hint := fmt.Sprintf(format, args...)
	p.merr = multierror.Append(p.merr, errors.New(path+": "+hint))
	p.iss = schemata.AppendIssues(p.iss, schemata.Issue{Path: path, Code: code, Message: i18n.T(code, nil), Hint: hint})
}

func (p *problems) err(op string) error {
	if p.merr == nil {
		return nil
	}
	return schemata.DefinitionError(op, p.merr.ErrorOrNil(), p.iss...)
}

// FieldOption configures a DataField.
type FieldOption func(*DataField)

// Required marks the field as required.
func Required() FieldOption { return func(f *DataField) { f.required = true } }

// Optional marks the field as optional (default).
func Optional() FieldOption { return func(f *DataField) { f.required = false } }

// Constant marks the field as constant. Constant fields need a default.
func Constant() FieldOption { return func(f *DataField) { f.constant = true } }

// Default sets the native default value of the field. A nil default is a
// declared null default.
func Default(v any) FieldOption {
	return func(f *DataField) {
		f.def = v
		f.hasDefault = true
	}
}

// Doc sets the field documentation.
func Doc(doc string) FieldOption { return func(f *DataField) { f.doc = doc } }

// Index overrides the declared index of the field.
func Index(i int) FieldOption { return func(f *DataField) { f.index = i } }

type StructBuilder struct {
	namespace string
	name      string
	doc       string
	fields    []*DataField
}

// Struct starts a struct schema builder.
func Struct(namespace, name string) *StructBuilder {
	return &StructBuilder{namespace: namespace, name: name}
}

// Doc sets the struct documentation.
func (b *StructBuilder) Doc(doc string) *StructBuilder {
	b.doc = doc
	return b
}

// Field appends a field. Problems are reported by Build.
func (b *StructBuilder) Field(name string, s DataSchema, opts ...FieldOption) *StructBuilder {
	f := &DataField{name: name, schema: s, index: -1}
	for _, o := range opts {
		o(f)
	}
	b.fields = append(b.fields, f)
	return b
}

// Build validates the declaration and returns the immutable schema.
func (b *StructBuilder) Build() (*StructSchema, error) {
	var p problems
	out := &StructSchema{
		namespace: b.namespace,
		name:      b.name,
		doc:       b.doc,
		fields:    make([]*DataField, 0, len(b.fields)),
		byName:    make(map[string]int, len(b.fields)),
	}
	indexes := map[int]string{}
	for pos, f := range b.fields {
		path := "/fields/" + f.name
		if f.name == "" {
			p.add(fmt.Sprintf("/fields/%d", pos), schemata.CodeInvalidSchema, "field name must not be empty")
			continue
		}
		if _, dup := out.byName[f.name]; dup {
			p.add(path, schemata.CodeDuplicateField, "field %q declared more than once", f.name)
			continue
		}
		if f.schema == nil {
			p.add(path, schemata.CodeInvalidSchema, "field %q has no schema", f.name)
			continue
		}
		if f.constant && !f.hasDefault {
			p.add(path, schemata.CodeInvalidDefault, "constant field %q needs a default", f.name)
		}
		if f.hasDefault {
			if f.def == nil && f.required && !Matches(f.schema, nil) {
				p.add(path, schemata.CodeInvalidDefault, "required field %q cannot default to null", f.name)
			} else if f.def != nil && !Matches(f.schema, f.def) {
				p.add(path, schemata.CodeInvalidDefault, "default %s does not match %s", schemata.DescribeValue(f.def), f.schema)
			}
		}
		cp := *f
		if cp.index < 0 {
			cp.index = pos
		}
		if other, dup := indexes[cp.index]; dup {
			p.add(path, schemata.CodeInvalidSchema, "index %d already used by field %q", cp.index, other)
		}
		indexes[cp.index] = cp.name
		out.byName[cp.name] = len(out.fields)
		out.fields = append(out.fields, &cp)
	}
	if out.name == "" && out.namespace != "" {
		p.add("/name", schemata.CodeInvalidSchema, "namespace %q given without a name", out.namespace)
	}
	if err := p.err("schema.Struct.Build"); err != nil {
		return nil, err
	}
	return out, nil
}

// MustBuild is like Build but panics on error. Intended for static schemas.
func (b *StructBuilder) MustBuild() *StructSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

type EnumBuilder struct {
	namespace  string
	name       string
	doc        string
	symbols    []string
	defaultSym string
}

// Enum starts an enum schema builder.
func Enum(namespace, name string, symbols ...string) *EnumBuilder {
	return &EnumBuilder{namespace: namespace, name: name, symbols: symbols}
}

func (b *EnumBuilder) Doc(doc string) *EnumBuilder {
	b.doc = doc
	return b
}

// Default sets the symbol used when a reader meets an unknown symbol.
func (b *EnumBuilder) Default(sym string) *EnumBuilder {
	b.defaultSym = sym
	return b
}

func (b *EnumBuilder) Build() (*EnumSchema, error) {
	var p problems
	out := &EnumSchema{
		namespace:  b.namespace,
		name:       b.name,
		doc:        b.doc,
		symbols:    make([]string, 0, len(b.symbols)),
		set:        make(map[string]struct{}, len(b.symbols)),
		defaultSym: b.defaultSym,
	}
	if len(b.symbols) == 0 {
		p.add("/symbols", schemata.CodeInvalidSchema, "enum needs at least one symbol")
	}
	for i, s := range b.symbols {
		if s == "" {
			p.add(fmt.Sprintf("/symbols/%d", i), schemata.CodeInvalidSchema, "symbol must not be empty")
			continue
		}
		if _, dup := out.set[s]; dup {
			p.add(fmt.Sprintf("/symbols/%d", i), schemata.CodeInvalidSchema, "symbol %q declared more than once", s)
			continue
		}
		out.set[s] = struct{}{}
		out.symbols = append(out.symbols, s)
	}
	if b.defaultSym != "" {
		if _, ok := out.set[b.defaultSym]; !ok {
			p.add("/default", schemata.CodeInvalidDefault, "default symbol %q is not declared", b.defaultSym)
		}
	}
	if err := p.err("schema.Enum.Build"); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *EnumBuilder) MustBuild() *EnumSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// UnionOf builds a union. Alternatives must be non-nil and not unions
// themselves.
func UnionOf(alts ...DataSchema) (*UnionSchema, error) {
	var p problems
	if len(alts) == 0 {
		p.add("/types", schemata.CodeInvalidSchema, "union needs at least one alternative")
	}
	out := &UnionSchema{alts: make([]DataSchema, 0, len(alts))}
	for i, a := range alts {
		switch {
		case a == nil:
			p.add(fmt.Sprintf("/types/%d", i), schemata.CodeInvalidSchema, "alternative %d is nil", i)
		case a.Kind() == KindUnion:
			p.add(fmt.Sprintf("/types/%d", i), schemata.CodeInvalidSchema, "unions may not directly contain unions")
		default:
			out.alts = append(out.alts, a)
		}
	}
	if err := p.err("schema.UnionOf"); err != nil {
		return nil, err
	}
	return out, nil
}

// MustUnion is like UnionOf but panics on error.
func MustUnion(alts ...DataSchema) *UnionSchema {
	u, err := UnionOf(alts...)
	if err != nil {
		panic(err)
	}
	return u
}

// Nullable returns union<null, s>. Unions that already admit null are
// returned as is; other unions get null prepended.
func Nullable(s DataSchema) *UnionSchema {
	if u, ok := s.(*UnionSchema); ok {
		if u.Nullable() {
			return u
		}
		return &UnionSchema{alts: append([]DataSchema{Null}, u.alts...)}
	}
	if s.Kind() == KindNull {
		return &UnionSchema{alts: []DataSchema{Null}}
	}
	return &UnionSchema{alts: []DataSchema{Null, s}}
}

// NewFixed builds a fixed-size bytes schema.
func NewFixed(namespace, name string, size int) (*FixedSchema, error) {
	var p problems
	if size <= 0 {
		p.add("/size", schemata.CodeInvalidSchema, "fixed size must be positive, got %d", size)
	}
	if err := p.err("schema.NewFixed"); err != nil {
		return nil, err
	}
	return &FixedSchema{namespace: namespace, name: name, size: size}, nil
}
