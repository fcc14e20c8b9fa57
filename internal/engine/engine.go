// Package engine decodes JSON into untyped value trees through a token
// stream, enforcing duplicate-key and nesting-depth policies on the way.
package engine

import (
	"encoding/json"
	"errors"
	"io"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one lexical element.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
}

// TokenSource yields tokens until io.EOF.
type TokenSource interface {
	NextToken() (Token, error)
}

// ErrTrailingData is returned when a document holds more than one value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// Decode parses one JSON document held in data. Numbers are kept as
// json.Number so integer and floating point literals stay distinguishable.
func Decode(data []byte, opt EnforceOptions) (any, error) {
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, IssueError{SimpleIssue{Code: CodeParseError, Path: "/", Message: "max bytes exceeded"}}
	}
	d := treeDecoder{src: WrapWithEnforcement(NewBytes(data), opt)}
	v, err := d.document()
	if err != nil {
		return nil, err
	}
	return v, nil
}

type treeDecoder struct {
	src TokenSource
}

func (d *treeDecoder) document() (any, error) {
	tok, err := d.next()
	if err != nil {
		return nil, err
	}
	v, err := d.value(tok)
	if err != nil {
		return nil, err
	}
	switch _, err := d.src.NextToken(); {
	case err == io.EOF:
		return v, nil
	case err == nil:
		return nil, ErrTrailingData
	default:
		return nil, err
	}
}

// next reads a token that must exist; running out of input is an
// unexpected EOF at this point.
func (d *treeDecoder) next() (Token, error) {
	tok, err := d.src.NextToken()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (d *treeDecoder) value(tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		m := map[string]any{}
		for {
			key, err := d.next()
			if err != nil {
				return nil, err
			}
			if key.Kind == KindEndObject {
				return m, nil
			}
			if key.Kind != KindKey {
				return nil, io.ErrUnexpectedEOF
			}
			vt, err := d.next()
			if err != nil {
				return nil, err
			}
			if m[key.String], err = d.value(vt); err != nil {
				return nil, err
			}
		}
	case KindBeginArray:
		arr := []any{}
		for {
			et, err := d.next()
			if err != nil {
				return nil, err
			}
			if et.Kind == KindEndArray {
				return arr, nil
			}
			v, err := d.value(et)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
	case KindString:
		return tok.String, nil
	case KindNumber:
		return json.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	}
	return nil, io.ErrUnexpectedEOF
}
