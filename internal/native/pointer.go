package native

import "strings"

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Pointer appends token to the JSON Pointer base, escaping "~" and "/".
// An empty base is the document root.
func Pointer(base, token string) string {
	if base == "/" {
		base = ""
	}
	return base + "/" + pointerEscaper.Replace(token)
}

// Unescape decodes a single JSON Pointer reference token.
func Unescape(token string) string { return pointerUnescaper.Replace(token) }
