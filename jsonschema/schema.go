package jsonschema

// Schema is a minimal JSON Schema representation. It is the native schema
// of the JSON notation.
type Schema struct {
	// Core
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	// String
	ContentEncoding string `json:"contentEncoding,omitempty"`

	// Number
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Union
	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// AcceptsNull reports whether s admits a JSON null at its top level.
func (s *Schema) AcceptsNull() bool {
	if s == nil || (s.Type == "" && len(s.AnyOf) == 0 && len(s.OneOf) == 0 && len(s.Enum) == 0) {
		return true
	}
	if s.Type == "null" {
		return true
	}
	for _, alt := range s.AnyOf {
		if alt.AcceptsNull() {
			return true
		}
	}
	return false
}
