package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemata "github.com/reoring/schemata"
	yamln "github.com/reoring/schemata/notation/yaml"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

func sensor() *schema.StructSchema {
	return schema.Struct("io.example", "Sensor").
		Field("name", schema.String, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		Field("tags", schema.ListOf(schema.String)).
		Field("raw", schema.Bytes).
		MustBuild()
}

func TestSerdeFor_Shapes(t *testing.T) {
	n := yamln.New(yamln.Options{})
	_, err := n.SerdeFor(schema.String, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))

	_, err = n.SerdeFor(sensor(), false)
	require.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	serde, err := yamln.New(yamln.Options{}).SerdeFor(sensor(), false)
	require.NoError(t, err)

	in, err := object.StructFrom(sensor(), map[string]any{
		"name": "s1", "value": 3, "tags": []any{"a", "b"}, "raw": []byte("hi"),
	})
	require.NoError(t, err)

	b, err := serde.Serialize(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), "raw: aGk=")

	out, err := serde.Deserialize(b)
	require.NoError(t, err)
	assert.True(t, object.Equal(in, out), "got %s", out)
}

func TestDeserialize_Errors(t *testing.T) {
	serde, err := yamln.New(yamln.Options{}).SerdeFor(sensor(), false)
	require.NoError(t, err)

	cases := map[string]struct {
		doc  string
		kind error
	}{
		"type mismatch": {"name: s1\nvalue: high\n", schemata.ErrValidation},
		"duplicate key": {"name: s1\nname: s2\nvalue: 1\n", schemata.ErrConversion},
		"empty":         {"", schemata.ErrConversion},
		"two documents": {"name: a\nvalue: 1\n---\nname: b\nvalue: 2\n", schemata.ErrConversion},
		"malformed":     {"name: [", schemata.ErrConversion},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := serde.Deserialize([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), err.Error())
			assert.True(t, schemata.IsPerRecord(err))
		})
	}
}

func TestDefaultSchema(t *testing.T) {
	n := yamln.New(yamln.Options{})
	serde, err := n.SerdeFor(n.DefaultSchema(), false)
	require.NoError(t, err)

	obj, err := serde.Deserialize([]byte("a: 1\nb:\n  c: true\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "b": map[string]any{"c": true}}, object.Native(obj))
}

func TestDeserialize_TimestampsStayText(t *testing.T) {
	serde, err := yamln.New(yamln.Options{}).SerdeFor(yamln.DefaultSchema, false)
	require.NoError(t, err)

	obj, err := serde.Deserialize([]byte("at: 2024-01-02\nlater: 2024-01-02T03:04:05Z\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"at": "2024-01-02", "later": "2024-01-02T03:04:05Z"}, object.Native(obj))
}
