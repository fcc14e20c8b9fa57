// Package config holds the start-up configuration of the notation registry
// and the command line tool. Configuration is read from YAML, layered over
// Default() and then over SCHEMATA_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/reoring/schemata/object"
)

// Notation names known to the builtin registry.
const (
	NotationJSON     = "json"
	NotationAvro     = "avro"
	NotationYAML     = "yaml"
	NotationProtobuf = "protobuf"
	NotationEnvelope = "envelope"
)

// EnvPrefix prefixes environment overrides, e.g. SCHEMATA_LOG_LEVEL.
const EnvPrefix = "SCHEMATA"

// Config is the complete configuration.
type Config struct {
	// Notations lists the notations to register. Empty means all.
	Notations []string       `yaml:"notations"`
	Union     UnionConfig    `yaml:"union"`
	JSON      JSONConfig     `yaml:"json"`
	YAML      YAMLConfig     `yaml:"yaml"`
	Protobuf  ProtobufConfig `yaml:"protobuf"`
	Envelope  EnvelopeConfig `yaml:"envelope"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Log       LogConfig      `yaml:"log"`
}

// UnionConfig selects how values matching several union alternatives are
// resolved: "first_match" or "error".
type UnionConfig struct {
	Ambiguity string `yaml:"ambiguity"`
}

type JSONConfig struct {
	MaxDepth           int  `yaml:"max_depth"`
	AllowDuplicateKeys bool `yaml:"allow_duplicate_keys"`
	ValidateNative     bool `yaml:"validate_native"`
}

type YAMLConfig struct {
	Indent int `yaml:"indent"`
}

type ProtobufConfig struct {
	Deterministic bool `yaml:"deterministic"`
}

// EnvelopeConfig names the notation envelope payloads are written with.
// ReadUnknown lets positional payloads under an unknown writer schema be
// decoded with the reader schema.
type EnvelopeConfig struct {
	Inner       string `yaml:"inner"`
	ReadUnknown bool   `yaml:"read_unknown"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the slog logger of the command line tool.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Notations: AllNotations(),
		Union:     UnionConfig{Ambiguity: object.FirstMatch.String()},
		JSON:      JSONConfig{MaxDepth: 64},
		YAML:      YAMLConfig{Indent: 2},
		Protobuf:  ProtobufConfig{Deterministic: true},
		Envelope:  EnvelopeConfig{Inner: NotationAvro},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// AllNotations returns every notation name the builtin registry knows.
func AllNotations() []string {
	return []string{NotationJSON, NotationAvro, NotationYAML, NotationProtobuf, NotationEnvelope}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %s failed: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SCHEMATA_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPrefix + "_NOTATIONS"); ok && v != "" {
		c.Notations = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "_UNION_AMBIGUITY"); ok && v != "" {
		c.Union.Ambiguity = v
	}
	if v, ok := lookup(EnvPrefix + "_ENVELOPE_INNER"); ok && v != "" {
		c.Envelope.Inner = v
	}
	if v, ok := lookup(EnvPrefix + "_JSON_MAX_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.JSON.MaxDepth = n
		}
	}
	if v, ok := lookup(EnvPrefix + "_ENVELOPE_READ_UNKNOWN"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Envelope.ReadUnknown = b
		}
	}
	if v, ok := lookup(EnvPrefix + "_METRICS_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
	if v, ok := lookup(EnvPrefix + "_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Enabled reports whether notation name is to be registered.
func (c *Config) Enabled(name string) bool {
	if len(c.Notations) == 0 {
		return true
	}
	for _, n := range c.Notations {
		if n == name {
			return true
		}
	}
	return false
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	known := map[string]bool{}
	for _, n := range AllNotations() {
		known[n] = true
	}
	seen := map[string]bool{}
	for _, n := range c.Notations {
		if !known[n] {
			errs = multierror.Append(errs, fmt.Errorf("notations: unknown notation %q", n))
		}
		if seen[n] {
			errs = multierror.Append(errs, fmt.Errorf("notations: %q listed twice", n))
		}
		seen[n] = true
	}
	if _, err := object.ParseAmbiguity(c.Union.Ambiguity); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("union.ambiguity: %w", err))
	}
	if c.JSON.MaxDepth < 0 {
		errs = multierror.Append(errs, fmt.Errorf("json.max_depth: must not be negative, got %d", c.JSON.MaxDepth))
	}
	if c.YAML.Indent < 0 {
		errs = multierror.Append(errs, fmt.Errorf("yaml.indent: must not be negative, got %d", c.YAML.Indent))
	}
	if c.Enabled(NotationEnvelope) {
		switch {
		case c.Envelope.Inner == "":
			errs = multierror.Append(errs, errors.New("envelope.inner: required when the envelope is enabled"))
		case c.Envelope.Inner == NotationEnvelope:
			errs = multierror.Append(errs, errors.New("envelope.inner: the envelope cannot wrap itself"))
		case !known[c.Envelope.Inner]:
			errs = multierror.Append(errs, fmt.Errorf("envelope.inner: unknown notation %q", c.Envelope.Inner))
		case !c.Enabled(c.Envelope.Inner):
			errs = multierror.Append(errs, fmt.Errorf("envelope.inner: notation %q is not enabled", c.Envelope.Inner))
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		errs = multierror.Append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// Ambiguity returns the configured union strategy, FirstMatch when invalid.
func (c *Config) Ambiguity() object.Ambiguity {
	a, _ := object.ParseAmbiguity(c.Union.Ambiguity)
	return a
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

// NewLogger builds the logger described by c.Log writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
