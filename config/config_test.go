package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/schemata/config"
	"github.com/reoring/schemata/object"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, object.FirstMatch, cfg.Ambiguity())
	for _, n := range config.AllNotations() {
		assert.True(t, cfg.Enabled(n), n)
	}
}

func TestParse_OverDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
notations: [json, avro, envelope]
union:
  ambiguity: error
json:
  max_depth: 8
envelope:
  inner: json
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "avro", "envelope"}, cfg.Notations)
	assert.Equal(t, object.AmbiguityError, cfg.Ambiguity())
	assert.Equal(t, 8, cfg.JSON.MaxDepth)
	assert.Equal(t, "json", cfg.Envelope.Inner)
	assert.Equal(t, 2, cfg.YAML.Indent)
	assert.False(t, cfg.Enabled("yaml"))
}

func TestParse_Empty(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := config.Parse([]byte("jsn:\n  max_depth: 3\n"))
	require.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := config.Default()
	cfg.Notations = []string{"json", "xml", "json", "envelope"}
	cfg.Union.Ambiguity = "random"
	cfg.JSON.MaxDepth = -1
	cfg.Envelope.Inner = "avro"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown notation "xml"`,
		`"json" listed twice`,
		"union.ambiguity",
		"json.max_depth",
		`notation "avro" is not enabled`,
		"log.level",
		"log.format",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_Envelope(t *testing.T) {
	cfg := config.Default()
	cfg.Envelope.Inner = "envelope"
	assert.ErrorContains(t, cfg.Validate(), "cannot wrap itself")

	cfg.Envelope.Inner = ""
	assert.ErrorContains(t, cfg.Validate(), "required")

	cfg.Notations = []string{"json"}
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	t.Setenv("SCHEMATA_ENVELOPE_INNER", "yaml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "yaml", cfg.Envelope.Inner)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SCHEMATA_NOTATIONS":             " json , avro ",
		"SCHEMATA_JSON_MAX_DEPTH":        "12",
		"SCHEMATA_METRICS_ENABLED":       "true",
		"SCHEMATA_LOG_LEVEL":             "warn",
		"SCHEMATA_ENVELOPE_READ_UNKNOWN": "true",
	}
	cfg := config.Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, []string{"json", "avro"}, cfg.Notations)
	assert.Equal(t, 12, cfg.JSON.MaxDepth)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Envelope.ReadUnknown)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"k":1`)
}
