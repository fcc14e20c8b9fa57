package notation_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/notation"
	jsonn "github.com/reoring/schemata/notation/json"
	yamln "github.com/reoring/schemata/notation/yaml"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

func sensor() *schema.StructSchema {
	return schema.Struct("io.example", "Sensor").
		Field("name", schema.String, schema.Required()).
		Field("value", schema.Double, schema.Required()).
		Field("unit", schema.String).
		MustBuild()
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := notation.NewRegistry(nil)
	first := jsonn.New(jsonn.Options{})
	require.NoError(t, reg.Register(first, nil))

	err := reg.Register(jsonn.New(jsonn.Options{AllowDuplicateKeys: true}), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrDuplicateNotation))
	assert.True(t, schemata.IsFatal(err))

	got, ok := reg.Lookup(jsonn.Name)
	require.True(t, ok)
	assert.Same(t, first, got)

	assert.Error(t, reg.Register(nil, nil))
}

func TestRegistry_Freeze(t *testing.T) {
	reg := notation.NewRegistry(nil)
	require.NoError(t, reg.Register(yamln.New(yamln.Options{}), nil))
	require.NoError(t, reg.Register(jsonn.New(jsonn.Options{}), nil))
	assert.False(t, reg.Frozen())
	reg.Freeze()
	reg.Freeze()
	assert.True(t, reg.Frozen())

	err := reg.Register(notationStub{}, nil)
	assert.True(t, errors.Is(err, schemata.ErrRegistryFrozen))
	assert.True(t, errors.Is(reg.SetMetrics(nil), schemata.ErrRegistryFrozen))
	assert.Equal(t, []string{"json", "yaml"}, reg.Names())
}

func TestRegistry_Lookup(t *testing.T) {
	reg := notation.NewRegistry(nil)
	require.NoError(t, reg.Register(jsonn.New(jsonn.Options{}), jsonn.TextConverter(jsonn.New(jsonn.Options{}))))

	_, err := reg.Notation("avro")
	assert.True(t, errors.Is(err, schemata.ErrUnknownNotation))
	_, err = reg.SerdeFor("avro", sensor(), false)
	assert.True(t, errors.Is(err, schemata.ErrUnknownNotation))

	_, ok := reg.Converter(jsonn.Name)
	assert.True(t, ok)
	_, ok = reg.Converter("avro")
	assert.False(t, ok)

	_, err = reg.SerdeFor(jsonn.Name, schema.Int, false)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))

	serde, err := reg.SerdeFor(jsonn.Name, sensor(), true)
	require.NoError(t, err)
	assert.True(t, serde.IsKey)
	assert.Equal(t, jsonn.Name, serde.Notation)
}

func TestRegistry_Convert(t *testing.T) {
	n := jsonn.New(jsonn.Options{})
	reg := notation.NewRegistry(nil)
	require.NoError(t, reg.Register(n, jsonn.TextConverter(n)))
	require.NoError(t, reg.Register(yamln.New(yamln.Options{}), nil))
	reg.Freeze()

	widened, err := reg.Convert(object.NewInt(3), jsonn.Name, schema.Long)
	require.NoError(t, err)
	assert.Equal(t, int64(3), widened.(*object.Long).Value())

	parsed, err := reg.Convert(object.NewString(`{"name":"s1","value":1}`), jsonn.Name, sensor())
	require.NoError(t, err)
	assert.Equal(t, "s1", parsed.(*object.Struct).Get("name").(*object.String).Value())

	schemaless, err := reg.Convert(object.NewString(`[1]`), jsonn.Name, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.KindList, schemaless.Schema().Kind())

	_, err = reg.Convert(object.NewString("x"), yamln.Name, sensor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemata.ErrConversion))

	_, err = reg.Convert(object.NewString(`{"name":"s1"}`), jsonn.Name, sensor())
	require.Error(t, err)
	assert.True(t, schemata.IsPerRecord(err))
}

func TestRegistry_Metrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m, err := notation.NewSerdeMetrics(promReg)
	require.NoError(t, err)
	_, err = notation.NewSerdeMetrics(promReg)
	require.Error(t, err)

	reg := notation.NewRegistry(nil)
	require.NoError(t, reg.Register(jsonn.New(jsonn.Options{}), nil))
	require.NoError(t, reg.SetMetrics(m))
	reg.Freeze()

	serde, err := reg.SerdeFor(jsonn.Name, sensor(), false)
	require.NoError(t, err)
	in, err := object.StructFrom(sensor(), map[string]any{"name": "s1", "value": 1.0})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = serde.Serialize(in)
		require.NoError(t, err)
	}
	_, err = serde.Deserialize([]byte(`{`))
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("json", "serialize")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("json", "deserialize")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("json", "deserialize")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures.WithLabelValues("json", "serialize")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Bytes))
}

func TestStructured(t *testing.T) {
	assert.True(t, notation.Structured(sensor()))
	assert.True(t, notation.Structured(schema.MustUnion(sensor(), schema.ListOf(schema.Int))))
	assert.False(t, notation.Structured(schema.Nullable(sensor())))
	assert.False(t, notation.Structured(schema.String))

	err := notation.RequireStructured("json", nil)
	assert.True(t, errors.Is(err, schemata.ErrNoSerde))
}

func TestCheckOutgoing(t *testing.T) {
	assert.True(t, errors.Is(notation.CheckOutgoing("op", sensor(), nil), schemata.ErrConversion))

	st := object.NewStruct(sensor())
	require.NoError(t, st.Put("name", "s1"))
	err := notation.CheckOutgoing("op", sensor(), st)
	iss, ok := schemata.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, schemata.CodeIncomplete, iss[0].Code)

	require.NoError(t, st.Put("value", 2))
	assert.NoError(t, notation.CheckOutgoing("op", sensor(), st))
	assert.Error(t, notation.CheckOutgoing("op", schema.ListOf(schema.Int), st))
}

func TestNativeMapper(t *testing.T) {
	m := notation.NativeMapper{Options: []object.Option{object.WithAmbiguity(object.AmbiguityError)}}

	obj, err := m.ToDataObject(nil, map[string]any{"a": 1, "b": []any{"x"}})
	require.NoError(t, err)
	want := map[string]any{"a": int64(1), "b": []any{"x"}}
	if diff := cmp.Diff(want, m.FromDataObject(obj)); diff != "" {
		t.Errorf("FromDataObject mismatch (-want +got):\n%s", diff)
	}

	_, err = m.ToDataObject(schema.MustUnion(schema.Long, schema.Double), 1)
	require.Error(t, err)
	iss, _ := schemata.AsIssues(err)
	assert.Equal(t, schemata.CodeUnionAmbiguous, iss[0].Code)

	obj, err = m.ToDataObject(sensor(), map[string]any{"name": "s", "value": 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.FromDataObject(obj).(map[string]any)["value"])
}

type notationStub struct{}

func (notationStub) Name() string                     { return "stub" }
func (notationStub) DefaultSchema() schema.DataSchema { return schema.Any }
func (notationStub) NativeToData(s schema.DataSchema, v any) (object.DataObject, error) {
	return object.From(s, v)
}
func (notationStub) DataToNative(obj object.DataObject) (any, error) { return object.Native(obj), nil }
func (notationStub) SerdeFor(s schema.DataSchema, isKey bool) (*notation.Serde, error) {
	return nil, schemata.NoSerdeFor("stub", s.String())
}
