package envelope_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/notation/avro"
	"github.com/reoring/schemata/notation/envelope"
	jsonn "github.com/reoring/schemata/notation/json"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

var sensorV1 = schema.Struct("io.example", "Sensor").
	Field("name", schema.String, schema.Required()).
	Field("value", schema.Double, schema.Required()).
	MustBuild()

var sensorV2 = schema.Struct("io.example", "Sensor").
	Field("name", schema.String, schema.Required()).
	Field("value", schema.Double, schema.Required()).
	Field("location", schema.String).
	MustBuild()

func newRegistry(t *testing.T, inner string, store envelope.SchemaStore) (*notation.Registry, *envelope.Notation) {
	t.Helper()
	reg := notation.NewRegistry(nil)
	require.NoError(t, reg.Register(jsonn.New(jsonn.Options{}), nil))
	require.NoError(t, reg.Register(avro.New(avro.Options{}), nil))
	env := envelope.New(reg, envelope.Options{Inner: inner, Store: store})
	require.NoError(t, reg.Register(env, nil))
	reg.Freeze()
	return reg, env
}

func TestHeader(t *testing.T) {
	b := envelope.Append(nil, envelope.Header{Notation: "avro", Fingerprint: 0x0102030405060708}, []byte{9})
	assert.Equal(t, []byte{0x01, 4, 'a', 'v', 'r', 'o', 1, 2, 3, 4, 5, 6, 7, 8, 9}, b)

	h, payload, err := envelope.Split(b)
	require.NoError(t, err)
	assert.Equal(t, envelope.Header{Notation: "avro", Fingerprint: 0x0102030405060708}, h)
	assert.Equal(t, []byte{9}, payload)

	for name, data := range map[string][]byte{
		"empty":       nil,
		"marker":      {0x02, 4, 'a', 'v', 'r', 'o'},
		"zero name":   {0x01, 0},
		"truncated":   b[:8],
		"bad varint":  {0x01, 0xff},
		"invalid utf": {0x01, 1, 0xff, 0, 0, 0, 0, 0, 0, 0, 0},
	} {
		_, _, err := envelope.Split(data)
		assert.Error(t, err, name)
	}
}

func TestRoundTrip_AcrossNotations(t *testing.T) {
	store := envelope.NewMemoryStore()
	reg, avroEnv := newRegistry(t, avro.Name, store)
	jsonEnv := envelope.New(reg, envelope.Options{Inner: jsonn.Name, Store: store})

	avroSerde, err := reg.SerdeFor(envelope.Name, sensorV1, false)
	require.NoError(t, err)
	assert.Equal(t, avro.Name, avroEnv.Inner())
	jsonSerde, err := jsonEnv.SerdeFor(sensorV1, false)
	require.NoError(t, err)

	in, err := object.StructFrom(sensorV1, map[string]any{"name": "s1", "value": 21.5})
	require.NoError(t, err)

	fromAvro, err := avroSerde.Serialize(in)
	require.NoError(t, err)
	fromJSON, err := jsonSerde.Serialize(in)
	require.NoError(t, err)

	h, payload, err := envelope.Split(fromJSON)
	require.NoError(t, err)
	assert.Equal(t, jsonn.Name, h.Notation)
	assert.JSONEq(t, `{"name":"s1","value":21.5}`, string(payload))

	for _, serde := range []*notation.Serde{avroSerde, jsonSerde} {
		for _, data := range [][]byte{fromAvro, fromJSON} {
			out, err := serde.Deserialize(data)
			require.NoError(t, err)
			assert.True(t, object.Equal(in, out))
		}
	}
}

func TestForwardRead(t *testing.T) {
	_, env := newRegistry(t, avro.Name, nil)
	writer, err := env.SerdeFor(sensorV2, false)
	require.NoError(t, err)
	reader, err := env.SerdeFor(sensorV1, false)
	require.NoError(t, err)

	v2, err := object.StructFrom(sensorV2, map[string]any{"name": "s1", "value": 1.5, "location": "lab"})
	require.NoError(t, err)
	data, err := writer.Serialize(v2)
	require.NoError(t, err)

	out, err := reader.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, sensorV1, out.Schema())
	assert.Equal(t, map[string]any{"name": "s1", "value": 1.5}, object.Native(out))

	v1, err := object.StructFrom(sensorV1, map[string]any{"name": "s0", "value": 0.5})
	require.NoError(t, err)
	old, err := reader.Serialize(v1)
	require.NoError(t, err)
	back, err := writer.Deserialize(old)
	require.NoError(t, err)
	assert.Equal(t, sensorV2, back.Schema())
	assert.False(t, back.(*object.Struct).Has("location"))
}

func TestRead_Errors(t *testing.T) {
	_, env := newRegistry(t, avro.Name, nil)
	serde, err := env.SerdeFor(sensorV1, false)
	require.NoError(t, err)

	incompatible := schema.Struct("io.example", "Sensor").
		Field("name", schema.Long, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		MustBuild()
	other, err := env.SerdeFor(incompatible, false)
	require.NoError(t, err)
	v, err := object.StructFrom(incompatible, map[string]any{"name": 1, "value": 2.0})
	require.NoError(t, err)
	data, err := other.Serialize(v)
	require.NoError(t, err)

	cases := map[string][]byte{
		"not assignable":   data,
		"unknown marker":   {0x7f, 1, 'x'},
		"unknown notation": envelope.Append(nil, envelope.Header{Notation: "bogus", Fingerprint: 1}, nil),
		"nested envelope":  envelope.Append(nil, envelope.Header{Notation: envelope.Name, Fingerprint: 1}, nil),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := serde.Deserialize(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, schemata.ErrConversion), err.Error())
			assert.False(t, schemata.IsFatal(err))
		})
	}
}

func TestRead_UnknownWriterSchema(t *testing.T) {
	reg, _ := newRegistry(t, avro.Name, nil)
	reading := schema.Struct("io.example", "Reading").
		Field("name", schema.String, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		MustBuild()
	in, err := object.StructFrom(sensorV1, map[string]any{"name": "s1", "value": 1.5})
	require.NoError(t, err)

	write := func(inner string) []byte {
		env := envelope.New(reg, envelope.Options{Inner: inner, Store: envelope.NewMemoryStore()})
		serde, err := env.SerdeFor(sensorV1, false)
		require.NoError(t, err)
		data, err := serde.Serialize(in)
		require.NoError(t, err)
		return data
	}
	read := func(inner string, readUnknown bool, data []byte) (object.DataObject, error) {
		env := envelope.New(reg, envelope.Options{Inner: inner, ReadUnknown: readUnknown})
		serde, err := env.SerdeFor(reading, false)
		require.NoError(t, err)
		return serde.Deserialize(data)
	}

	avroData := write(avro.Name)
	_, err = read(avro.Name, false, avroData)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrConversion))
	assert.False(t, schemata.IsFatal(err))
	iss, ok := schemata.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, schemata.CodeUnknownSchema, iss[0].Code)

	out, err := read(avro.Name, true, avroData)
	require.NoError(t, err)
	assert.Equal(t, reading, out.Schema())
	assert.Equal(t, map[string]any{"name": "s1", "value": 1.5}, object.Native(out))

	out, err = read(jsonn.Name, false, write(jsonn.Name))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "s1", "value": 1.5}, object.Native(out))
}

func TestSerdeFor_Inner(t *testing.T) {
	reg, _ := newRegistry(t, jsonn.Name, nil)
	_, err := reg.SerdeFor(envelope.Name, schema.Int, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))

	self := envelope.New(reg, envelope.Options{Inner: envelope.Name})
	_, err = self.SerdeFor(sensorV1, false)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))

	missing := envelope.New(reg, envelope.Options{Inner: "bogus"})
	_, err = missing.SerdeFor(sensorV1, false)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))
}

func TestMemoryStore(t *testing.T) {
	s := envelope.NewMemoryStore()
	s.Put(1, sensorV1)
	s.Put(1, sensorV2)
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Same(t, sensorV1, got)
	_, ok = s.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}
