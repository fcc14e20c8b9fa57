package avro_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation/avro"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

var status = schema.Enum("io.example", "Status", "OK", "DEGRADED", "DOWN").MustBuild()

func sensor() *schema.StructSchema {
	return schema.Struct("io.example", "Sensor").
		Field("name", schema.String, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		Field("unit", schema.String).
		Field("raw", schema.Bytes).
		MustBuild()
}

func station() *schema.StructSchema {
	return schema.Struct("io.example", "Station").
		Field("id", schema.Long, schema.Required()).
		Field("status", status, schema.Required()).
		Field("primary", sensor(), schema.Required()).
		Field("backup", sensor()).
		Field("readings", schema.ListOf(schema.Int), schema.Required()).
		Field("labels", schema.MapOf(schema.String), schema.Required()).
		Field("note", schema.Nullable(schema.String), schema.Required()).
		Field("payload", schema.MustUnion(schema.Long, schema.String, sensor()), schema.Required()).
		MustBuild()
}

func TestGenerateSchema_OptionalFields(t *testing.T) {
	avsc, err := avro.GenerateSchema(sensor())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "record", "name": "Sensor", "namespace": "io.example",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "value", "type": "double"},
			{"name": "unit", "type": ["null", "string"], "default": null},
			{"name": "raw", "type": ["null", "bytes"], "default": null}
		]}`, avsc)
}

func TestGenerateSchema_NamedTypesDefinedOnce(t *testing.T) {
	avsc, err := avro.GenerateSchema(station())
	require.NoError(t, err)
	assert.Contains(t, avsc, `"backup","type":["null","io.example.Sensor"]`)
}

func TestParseSchema_RoundTrip(t *testing.T) {
	for _, s := range []schema.DataSchema{sensor(), station(), status} {
		avsc, err := avro.GenerateSchema(s)
		require.NoError(t, err)
		back, err := avro.ParseSchema(avsc)
		require.NoError(t, err, avsc)
		assert.True(t, schema.Equal(s, back), "%s\n%s", s, back)
	}
}

func TestParseSchema_Errors(t *testing.T) {
	for _, avsc := range []string{`{`, `"nope"`, `{"type":"record","name":"R","fields":[{"name":"a","type":"missing"}]}`} {
		_, err := avro.ParseSchema(avsc)
		require.Error(t, err, avsc)
		assert.True(t, schemata.IsFatal(err))
	}
}

func TestSerdeFor_NoSerde(t *testing.T) {
	n := avro.New(avro.Options{})
	for _, s := range []schema.DataSchema{schema.AnyStruct, schema.ListOf(schema.Any), n.DefaultSchema()} {
		_, err := n.SerdeFor(s, false)
		require.Error(t, err, s.String())
		assert.True(t, errors.Is(err, schemata.ErrNoSerde))
	}
	_, err := n.SerdeFor(schema.Int, true)
	require.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	n := avro.New(avro.Options{})
	serde, err := n.SerdeFor(station(), false)
	require.NoError(t, err)

	in, err := object.StructFrom(station(), map[string]any{
		"id":       int64(7),
		"status":   "DEGRADED",
		"primary":  map[string]any{"name": "t1", "value": 21.5, "raw": []byte{1, 2}},
		"readings": []any{1, 2, 3},
		"labels":   map[string]any{"site": "north"},
		"note":     nil,
		"payload":  "text",
	})
	require.NoError(t, err)

	b, err := serde.Serialize(in)
	require.NoError(t, err)
	out, err := serde.Deserialize(b)
	require.NoError(t, err)
	assert.True(t, object.Equal(in, out), "in %s\nout %s", in, out)

	st := out.(*object.Struct)
	assert.IsType(t, &object.Enum{}, st.Get("status"))
	assert.IsType(t, &object.Null{}, st.Get("note"))
	assert.False(t, st.Has("backup"))
	assert.IsType(t, &object.String{}, st.Get("payload"))
}

func TestRoundTrip_Scalar(t *testing.T) {
	serde, err := avro.New(avro.Options{}).SerdeFor(schema.Int, false)
	require.NoError(t, err)
	b, err := serde.Serialize(object.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, []byte{84}, b)
	out, err := serde.Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, int32(42), out.(*object.Int).Value())
}

func TestDeserialize_Errors(t *testing.T) {
	serde, err := avro.New(avro.Options{}).SerdeFor(sensor(), false)
	require.NoError(t, err)

	_, err = serde.Deserialize([]byte{0x02})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrConversion))

	in, err := object.StructFrom(sensor(), map[string]any{"name": "s", "value": 1.0})
	require.NoError(t, err)
	b, err := serde.Serialize(in)
	require.NoError(t, err)
	_, err = serde.Deserialize(append(b, 0))
	require.Error(t, err)
	assert.True(t, schemata.IsPerRecord(err))
}

func TestSerialize_RejectsMismatch(t *testing.T) {
	serde, err := avro.New(avro.Options{}).SerdeFor(sensor(), false)
	require.NoError(t, err)

	_, err = serde.Serialize(object.NewString("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrValidation))

	partial := object.NewStruct(sensor())
	require.NoError(t, partial.Put("name", "s"))
	_, err = serde.Serialize(partial)
	require.Error(t, err)
}

func TestRecord_Put(t *testing.T) {
	r, err := avro.NewRecord(station())
	require.NoError(t, err)

	require.NoError(t, r.Put("status", "OK"))
	assert.IsType(t, &object.Enum{}, r.Get("status"))

	require.NoError(t, r.Put("primary", map[string]any{"name": "p", "value": 1}))
	assert.IsType(t, &object.Struct{}, r.Get("primary"))

	err = r.Put("status", "BROKEN")
	require.Error(t, err)
	var se *schemata.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "status", se.Field)
	assert.Equal(t, "avro.Record.Put", se.Op)
	assert.Equal(t, "OK", r.Get("status").(*object.Enum).Symbol())

	require.Error(t, r.Put("unknown", 1))
	require.Error(t, r.Put("id", "seven"))

	require.NoError(t, r.Put("id", 7))
	assert.Equal(t, int64(7), r.Get("id").(*object.Long).Value())
	require.NoError(t, r.Put("readings", []any{}))
	require.NoError(t, r.Put("labels", map[string]any{}))
	require.NoError(t, r.Put("note", nil))
	require.NoError(t, r.Put("payload", int64(1)))

	serde, err := avro.New(avro.Options{}).SerdeFor(station(), false)
	require.NoError(t, err)
	b, err := serde.Serialize(r.Struct())
	require.NoError(t, err)
	out, err := serde.Deserialize(b)
	require.NoError(t, err)
	assert.True(t, object.Equal(r.Struct(), out))
}

func TestRecordFrom(t *testing.T) {
	st, err := object.StructFrom(sensor(), map[string]any{"name": "s", "value": 2.0, "unit": "C"})
	require.NoError(t, err)
	r, err := avro.RecordFrom(st)
	require.NoError(t, err)
	assert.True(t, object.Equal(st, r.Struct()))

	_, err = avro.NewRecord(schema.AnyStruct)
	require.Error(t, err)
}

func TestNativeForms(t *testing.T) {
	n := avro.New(avro.Options{})
	in, err := object.StructFrom(sensor(), map[string]any{"name": "s", "value": 2.0, "unit": "C"})
	require.NoError(t, err)

	nat, err := n.DataToNative(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":  "s",
		"value": 2.0,
		"unit":  map[string]any{"string": "C"},
		"raw":   nil,
	}, nat)

	back, err := n.NativeToData(sensor(), nat)
	require.NoError(t, err)
	assert.True(t, object.Equal(in, back))
}

func TestRoundTrip_OptionalUnion(t *testing.T) {
	choice := schema.MustUnion(schema.Int, schema.String)
	s := schema.Struct("io.example", "Choice").
		Field("v", choice).
		MustBuild()

	avsc, err := avro.GenerateSchema(s)
	require.NoError(t, err)
	assert.Contains(t, avsc, `["null","int","string"]`)
	back, err := avro.ParseSchema(avsc)
	require.NoError(t, err, avsc)
	assert.True(t, schema.Equal(s, back), "%s\n%s", s, back)

	serde, err := avro.New(avro.Options{}).SerdeFor(s, false)
	require.NoError(t, err)
	for _, v := range []map[string]any{{"v": "x"}, {"v": 5}, {}} {
		in, err := object.StructFrom(s, v)
		require.NoError(t, err)
		b, err := serde.Serialize(in)
		require.NoError(t, err)
		out, err := serde.Deserialize(b)
		require.NoError(t, err)
		assert.True(t, object.Equal(in, out), "in %s\nout %s", in, out)
	}

	withDefault := schema.Struct("io.example", "Choice").
		Field("v", choice, schema.Default(1)).
		MustBuild()
	avsc, err = avro.GenerateSchema(withDefault)
	require.NoError(t, err)
	assert.Contains(t, avsc, `["int","string","null"]`)
	_, err = avro.New(avro.Options{}).SerdeFor(withDefault, false)
	require.NoError(t, err)
}

func TestNativeForms_NoAvroForm(t *testing.T) {
	n := avro.New(avro.Options{})
	_, err := n.NativeToData(schema.AnyStruct, map[string]any{"a": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrConversion))

	open, err := object.From(schema.AnyStruct, map[string]any{"a": "b"})
	require.NoError(t, err)
	_, err = n.DataToNative(open)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrConversion))

	s := sensor()
	in, err := object.StructFrom(s, map[string]any{"name": "s", "value": 1.0})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		nat, err := n.DataToNative(in)
		require.NoError(t, err)
		back, err := n.NativeToData(s, nat)
		require.NoError(t, err)
		assert.True(t, object.Equal(in, back))
	}
}
