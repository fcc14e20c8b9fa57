package engine

import (
	"strconv"

	"github.com/reoring/schemata/internal/native"
)

// Issue codes produced by the enforcing source. They share spelling with the
// codes of the root package.
const (
	CodeDuplicateKey = "duplicate_key"
	CodeParseError   = "parse_error"
)

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupError
)

// EnforceOptions controls runtime enforcement behavior. MaxBytes bounds the
// whole document and is checked before any token is read.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
}

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.Path + ": " + e.Message }

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         string
	nextIndex    int
	pendingKey   string
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key policy
// and maximum nesting depth.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
}

func (e *enforcingTokenSource) fail(code, path, msg string) (Token, error) {
	return Token{}, IssueError{SimpleIssue{Code: code, Path: normalizeIssuePath(path), Message: msg}}
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathFor(tok)

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		f := frame{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			f = frame{kind: kindObject, keys: map[string]struct{}{}, expectingKey: true, path: path}
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return e.fail(CodeParseError, path, "max depth "+strconv.Itoa(e.opt.MaxDepth)+" exceeded")
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
		e.valueDone()
	case KindKey:
		if top := e.top(); top != nil && top.kind == kindObject && top.expectingKey {
			if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate == DupError {
				return e.fail(CodeDuplicateKey, path, "key '"+tok.String+"' duplicated")
			}
			top.keys[tok.String] = struct{}{}
			top.expectingKey = false
			top.pendingKey = tok.String
		}
	default:
		e.valueDone()
	}

	return tok, nil
}

func (e *enforcingTokenSource) top() *frame {
	if n := len(e.stack); n > 0 {
		return &e.stack[n-1]
	}
	return nil
}

// valueDone marks the pending member of the enclosing object as consumed.
func (e *enforcingTokenSource) valueDone() {
	if top := e.top(); top != nil && top.kind == kindObject && !top.expectingKey {
		top.expectingKey = true
		top.pendingKey = ""
	}
}

func (e *enforcingTokenSource) pathFor(tok Token) string {
	top := e.top()
	if top == nil {
		return ""
	}
	switch tok.Kind {
	case KindKey:
		return native.Pointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.kind == kindArray {
		p := native.Pointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	if !top.expectingKey {
		return native.Pointer(top.path, top.pendingKey)
	}
	return top.path
}

func normalizeIssuePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
