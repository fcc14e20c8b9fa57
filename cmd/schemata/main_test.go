package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensorDoc = `
type: struct
namespace: io.example
name: Sensor
fields:
  - {name: name, type: string, required: true}
  - {name: value, type: double, required: true}
  - {name: unit, type: string}
`

const sensorV2Doc = `
type: struct
namespace: io.example
name: Sensor
fields:
  - {name: name, type: string, required: true}
  - {name: value, type: double, required: true}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestNotations(t *testing.T) {
	out, err := run(t, "", "notations")
	require.NoError(t, err)
	for _, name := range []string{"avro", "envelope", "json", "protobuf", "yaml"} {
		assert.Contains(t, out, name+"\t")
	}
	assert.Contains(t, out, "json\tdefault=union<")
	assert.Contains(t, out, "converter=true")

	cfg := writeFile(t, "cfg.yaml", "notations: [json]\n")
	out, err = run(t, "", "--config", cfg, "notations")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestCheck(t *testing.T) {
	v1 := writeFile(t, "v1.yaml", sensorDoc)
	v2 := writeFile(t, "v2.yaml", sensorV2Doc)

	out, err := run(t, "", "check", v2, v1)
	require.NoError(t, err)
	assert.Equal(t, "assignable\n", out)

	long := writeFile(t, "long.yaml", "long\n")
	_, err = run(t, "", "check", long, writeFile(t, "double.yaml", "double\n"))
	require.Error(t, err)

	_, err = run(t, "", "check", v1)
	require.Error(t, err)
}

func TestConvert_JSONToAvroAndBack(t *testing.T) {
	s := writeFile(t, "sensor.yaml", sensorDoc)
	avroFile := filepath.Join(t.TempDir(), "sensor.avro")

	_, err := run(t, `{"name":"s1","value":21.5}`, "convert", "-s", s, "--from", "json", "--to", "avro", "-o", avroFile)
	require.NoError(t, err)

	out, err := run(t, "", "convert", "-s", s, "--from", "avro", "--to", "json", "-i", avroFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"s1","value":21.5}`, out)
}

func TestConvert_OutSchema(t *testing.T) {
	v1 := writeFile(t, "v1.yaml", sensorDoc)
	v2 := writeFile(t, "v2.yaml", sensorV2Doc)

	out, err := run(t, `{"name":"s1","value":2}`, "convert", "-s", v1, "--out-schema", v2, "--to", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: s1")

	_, err = run(t, `{"name":"s1","value":2}`, "convert", "-s", v2, "--out-schema", writeFile(t, "long.yaml", "long\n"))
	require.Error(t, err)
}

func TestConvert_Errors(t *testing.T) {
	s := writeFile(t, "sensor.yaml", sensorDoc)

	_, err := run(t, `{"name":"s1","value":"high"}`, "--log-level", "debug", "convert", "-s", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read record")

	_, err = run(t, `{}`, "convert", "-s", s, "--to", "bogus")
	require.Error(t, err)

	_, err = run(t, `{}`, "convert")
	require.Error(t, err)

	_, err = run(t, `{}`, "--log-level", "loud", "notations")
	require.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	s := writeFile(t, "sensor.yaml", sensorDoc)
	out, err := run(t, "", "fingerprint", "--canonical", s)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 16)
	assert.Contains(t, lines[1], `"name":"Sensor"`)

	again, err := run(t, "", "fingerprint", s)
	require.NoError(t, err)
	assert.Equal(t, lines[0]+"\n", again)
}

func TestExport(t *testing.T) {
	s := writeFile(t, "sensor.yaml", sensorDoc)

	out, err := run(t, "", "export", s)
	require.NoError(t, err)
	assert.Contains(t, out, `"type":"record"`)

	out, err = run(t, "", "export", "-f", "jsonschema", s)
	require.NoError(t, err)
	assert.Contains(t, out, `"additionalProperties": false`)

	out, err = run(t, "", "export", "-f", "yaml", s)
	require.NoError(t, err)
	assert.Contains(t, out, "name: Sensor")

	_, err = run(t, "", "export", "-f", "xsd", s)
	require.Error(t, err)
}
