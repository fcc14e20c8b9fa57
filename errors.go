package schemata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/schemata/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType     = "invalid_type"
	CodeRequired        = "required"
	CodeUnknownField    = "unknown_field"
	CodeInvalidEnum     = "invalid_enum"
	CodeUnionNoMatch    = "union_no_match"
	CodeUnionAmbiguous  = "union_ambiguous"
	CodeConstant        = "constant"
	CodeDuplicateKey    = "duplicate_key"
	CodeDuplicateField  = "duplicate_field"
	CodeInvalidDefault  = "invalid_default"
	CodeInvalidSchema   = "invalid_schema"
	CodeNotAssignable   = "not_assignable"
	CodeNoSerde         = "no_serde"
	CodeParseError      = "parse_error"
	CodeOverflow        = "overflow"
	CodeIncomplete      = "incomplete"
	CodeUnknownNotation = "unknown_notation"
	CodeUnknownSchema   = "unknown_schema"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected shapes, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"expected":"long","got":"string"})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /value
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Hint != "" {
			fmt.Fprintf(b, " (%s)", it.Hint)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var se *Error
	if errors.As(err, &se) && len(se.Issues) > 0 {
		return se.Issues, true
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Rebase prefixes every issue path with base. Used when a child value reports
// issues relative to itself.
func (iss Issues) Rebase(base string) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case p[0] == '/':
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}

// NewIssue builds an Issue with a translated message.
func NewIssue(path, code, hint string) Issue {
	return Issue{Path: path, Code: code, Message: i18n.T(code, nil), Hint: hint}
}

// Kind classifies errors raised by this module.
type Kind int

const (
	// KindSchemaDefinition marks malformed or contradictory schemas. Fatal to a topology build.
	KindSchemaDefinition Kind = iota
	// KindValidation marks values that do not satisfy their declared schema.
	KindValidation
	// KindNoSerde marks schema shapes a notation cannot carry. Fatal at build time.
	KindNoSerde
	// KindConversion marks failed native<->DataObject mappings, usually malformed input.
	KindConversion
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindSchemaDefinition:
		return "schema definition"
	case KindValidation:
		return "validation"
	case KindNoSerde:
		return "no serde"
	case KindConversion:
		return "conversion"
	default:
		return "unknown"
	}
}

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrSchemaDefinition = errors.New("schema definition error")
	ErrValidation       = errors.New("validation failed")
	ErrNoSerde          = errors.New("no serde available")
	ErrConversion       = errors.New("conversion failed")

	ErrNotAssignable     = errors.New("schemas are not assignable")
	ErrDuplicateNotation = errors.New("notation already registered")
	ErrRegistryFrozen    = errors.New("notation registry is frozen")
	ErrUnknownNotation   = errors.New("unknown notation")
)

func (k Kind) sentinel() error {
	switch k {
	case KindSchemaDefinition:
		return ErrSchemaDefinition
	case KindValidation:
		return ErrValidation
	case KindNoSerde:
		return ErrNoSerde
	case KindConversion:
		return ErrConversion
	}
	return nil
}

// Error is the error type raised at the point a problem is detected.
// Field and Value identify the offending field and a description of the
// rejected value's shape when applicable.
type Error struct {
	Kind   Kind
	Op     string // e.g. "object.Struct.Put", "json.SerdeFor"
	Field  string
	Value  string
	Issues Issues
	Err    error
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Field != "" {
		fmt.Fprintf(b, " on field %q", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(b, " for value %s", e.Value)
	}
	if len(e.Issues) > 0 {
		b.WriteString(": ")
		b.WriteString(e.Issues.Error())
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// ValidationFailed reports a value rejected while writing field.
func ValidationFailed(op, field string, value any, iss ...Issue) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Value: DescribeValue(value), Issues: iss}
}

// DefinitionError reports a malformed schema.
func DefinitionError(op string, err error, iss ...Issue) *Error {
	return &Error{Kind: KindSchemaDefinition, Op: op, Issues: iss, Err: err}
}

// NoSerdeFor reports that notation cannot carry the described schema.
func NoSerdeFor(notation, schemaDesc string) *Error {
	return &Error{
		Kind:   KindNoSerde,
		Op:     notation + ".SerdeFor",
		Issues: Issues{NewIssue("/", CodeNoSerde, "notation "+notation+" cannot carry "+schemaDesc)},
	}
}

// ConversionFailed reports a failed native<->DataObject mapping.
func ConversionFailed(op string, value any, err error, iss ...Issue) *Error {
	return &Error{Kind: KindConversion, Op: op, Value: DescribeValue(value), Issues: iss, Err: err}
}

// IsFatal reports whether err must stop pipeline construction rather than a
// single record.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSchemaDefinition) || errors.Is(err, ErrNoSerde) ||
		errors.Is(err, ErrNotAssignable) || errors.Is(err, ErrDuplicateNotation)
}

// IsPerRecord reports whether err concerns a single value.
func IsPerRecord(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConversion)
}
