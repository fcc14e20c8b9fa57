package schemata

import (
	"fmt"
	"reflect"
	"strconv"
)

const maxDescribedString = 32

// DescribeValue renders a short description of a value's shape for error
// messages, e.g. `string("high")`, `map(2 keys)`, `[]any(len 3)`, `null`.
func DescribeValue(v any) string {
	if v == nil {
		return "null"
	}
	if d, ok := v.(interface{ Describe() string }); ok {
		return d.Describe()
	}
	switch x := v.(type) {
	case string:
		s := x
		if len(s) > maxDescribedString {
			s = s[:maxDescribedString] + "..."
		}
		return "string(" + strconv.Quote(s) + ")"
	case bool:
		return "bool(" + strconv.FormatBool(x) + ")"
	case []byte:
		return fmt.Sprintf("bytes(len %d)", len(x))
	case map[string]any:
		return fmt.Sprintf("map(%d keys)", len(x))
	case []any:
		return fmt.Sprintf("[]any(len %d)", len(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return fmt.Sprintf("%s(%d keys)", rv.Type(), rv.Len())
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("%s(len %d)", rv.Type(), rv.Len())
	case reflect.Pointer:
		if rv.IsNil() {
			return "null"
		}
	}
	return fmt.Sprintf("%T(%v)", v, v)
}
