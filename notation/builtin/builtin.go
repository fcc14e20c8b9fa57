// Package builtin assembles the notation registry from configuration.
package builtin

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/schemata/config"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/notation/avro"
	"github.com/reoring/schemata/notation/envelope"
	jsonn "github.com/reoring/schemata/notation/json"
	"github.com/reoring/schemata/notation/protobuf"
	yamln "github.com/reoring/schemata/notation/yaml"
)

// Options are the collaborators NewRegistry cannot build from
// configuration.
type Options struct {
	// Registerer receives serde metrics when cfg.Metrics.Enabled.
	// Nil means prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Store remembers envelope writer schemas. Nil means in-memory.
	Store envelope.SchemaStore
}

// NewRegistry registers every notation enabled in cfg and freezes the
// registry.
func NewRegistry(cfg *config.Config, logger *slog.Logger, opts ...Options) (*notation.Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("builtin.NewRegistry: %w", err)
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	reg := notation.NewRegistry(logger)
	ambiguity := cfg.Ambiguity()

	jsonNotation := jsonn.New(jsonn.Options{
		MaxDepth:           cfg.JSON.MaxDepth,
		AllowDuplicateKeys: cfg.JSON.AllowDuplicateKeys,
		ValidateNative:     cfg.JSON.ValidateNative,
		Ambiguity:          ambiguity,
	})
	candidates := []struct {
		notation  notation.Notation
		converter notation.Converter
	}{
		{jsonNotation, jsonn.TextConverter(jsonNotation)},
		{avro.New(avro.Options{Ambiguity: ambiguity}), nil},
		{yamln.New(yamln.Options{Ambiguity: ambiguity, Indent: cfg.YAML.Indent}), nil},
		{protobuf.New(protobuf.Options{Ambiguity: ambiguity, Deterministic: cfg.Protobuf.Deterministic}), nil},
		{envelope.New(reg, envelope.Options{
			Inner:       cfg.Envelope.Inner,
			Store:       o.Store,
			ReadUnknown: cfg.Envelope.ReadUnknown,
		}), nil},
	}
	for _, c := range candidates {
		if !cfg.Enabled(c.notation.Name()) {
			continue
		}
		if err := reg.Register(c.notation, c.converter); err != nil {
			return nil, fmt.Errorf("builtin.NewRegistry: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		r := o.Registerer
		if r == nil {
			r = prometheus.DefaultRegisterer
		}
		m, err := notation.NewSerdeMetrics(r)
		if err != nil {
			return nil, fmt.Errorf("builtin.NewRegistry: %w", err)
		}
		if err := reg.SetMetrics(m); err != nil {
			return nil, fmt.Errorf("builtin.NewRegistry: %w", err)
		}
	}
	reg.Freeze()
	return reg, nil
}
