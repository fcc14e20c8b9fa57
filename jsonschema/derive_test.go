package jsonschema_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	js "github.com/reoring/schemata/jsonschema"
	"github.com/reoring/schemata/schema"
)

func TestFromDataSchema_Struct(t *testing.T) {
	st := schema.Struct("io.example", "Sensor").
		Field("name", schema.String, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		Field("unit", schema.String, schema.Doc("SI unit")).
		MustBuild()

	out := js.FromDataSchema(st)
	assert.Equal(t, "object", out.Type)
	assert.Equal(t, "io.example.Sensor", out.Title)
	assert.Equal(t, []string{"name", "value"}, out.Required)
	assert.Equal(t, false, out.AdditionalProperties)

	unit := out.Properties["unit"]
	require.Len(t, unit.AnyOf, 2)
	assert.Equal(t, "null", unit.AnyOf[0].Type)
	assert.Equal(t, "string", unit.AnyOf[1].Type)
	assert.Equal(t, "SI unit", unit.Description)
}

func TestFromDataSchema_Shapes(t *testing.T) {
	b, err := json.Marshal(js.FromDataSchema(schema.ListOf(schema.MapOf(schema.Bytes))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"array","items":{"type":"object","additionalProperties":{"type":"string","contentEncoding":"base64"}}}`, string(b))

	i := js.FromDataSchema(schema.Int)
	require.NotNil(t, i.Maximum)
	assert.Equal(t, float64(2147483647), *i.Maximum)

	u := js.FromDataSchema(schema.MustUnion(schema.Null, schema.Long))
	assert.True(t, u.AcceptsNull())
	assert.False(t, js.FromDataSchema(schema.String).AcceptsNull())
	assert.True(t, js.FromDataSchema(schema.Any).AcceptsNull())

	e := js.FromDataSchema(schema.Enum("", "Color", "RED", "GREEN").MustBuild())
	assert.Equal(t, []any{"RED", "GREEN"}, e.Enum)

	open := js.FromDataSchema(schema.AnyStruct)
	assert.Equal(t, "object", open.Type)
	assert.Nil(t, open.AdditionalProperties)
}
