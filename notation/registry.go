package notation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/object"
	"github.com/reoring/schemata/schema"
)

type entry struct {
	notation  Notation
	converter Converter
}

// Registry maps notation names to adapters. It is filled during start-up,
// frozen, and then shared read-only with every pipeline stage.
type Registry struct {
	entries map[string]entry
	frozen  bool
	metrics *SerdeMetrics
	logger  *slog.Logger
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. A nil logger discards logs.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		entries: make(map[string]entry),
		logger:  logger.With("component", "notation-registry"),
	}
}

// Register adds n under n.Name() with an optional converter. Duplicate names
// are rejected and the first registration stays in place.
func (r *Registry) Register(n Notation, c Converter) error {
	if n == nil || n.Name() == "" {
		return errors.New("notation.Registry.Register: notation validation failed: missing name")
	}
	name := n.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("notation.Registry.Register: register %q failed: %w", name, schemata.ErrRegistryFrozen)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("notation.Registry.Register: register %q failed: %w", name, schemata.ErrDuplicateNotation)
	}
	r.entries[name] = entry{notation: n, converter: c}
	r.logger.Debug("notation registered", "notation", name, "converter", c != nil)
	return nil
}

// SetMetrics makes SerdeFor wrap every serde with m. Must be called before
// Freeze.
func (r *Registry) SetMetrics(m *SerdeMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("notation.Registry.SetMetrics: %w", schemata.ErrRegistryFrozen)
	}
	r.metrics = m
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frozen {
		r.frozen = true
		r.logger.Info("notation registry frozen", "notations", len(r.entries))
	}
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns the notation registered under name.
func (r *Registry) Lookup(name string) (Notation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.notation, ok
}

// Notation is Lookup with an ErrUnknownNotation error for missing names.
func (r *Registry) Notation(name string) (Notation, error) {
	n, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("notation.Registry.Notation: lookup %q failed: %w", name, schemata.ErrUnknownNotation)
	}
	return n, nil
}

// Converter returns the converter registered with name, if any.
func (r *Registry) Converter(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok || e.converter == nil {
		return nil, false
	}
	return e.converter, true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SerdeFor looks the notation up and asks it for a serde bound to s.
func (r *Registry) SerdeFor(name string, s schema.DataSchema, isKey bool) (*Serde, error) {
	n, err := r.Notation(name)
	if err != nil {
		return nil, err
	}
	serde, err := n.SerdeFor(s, isKey)
	if err != nil {
		r.logger.Warn("no serde", "notation", name, "schema", describeSchema(s), "error", err)
		return nil, err
	}
	r.mu.RLock()
	m := r.metrics
	r.mu.RUnlock()
	if m != nil {
		serde = m.Wrap(serde)
	}
	return serde, nil
}

// Convert re-expresses obj as a value of target for the notation named
// into. Values already acceptable to target are rebound (widening
// primitives); otherwise the notation's converter is consulted.
func (r *Registry) Convert(obj object.DataObject, into string, target schema.DataSchema) (object.DataObject, error) {
	const op = "notation.Registry.Convert"
	if target == nil {
		n, err := r.Notation(into)
		if err != nil {
			return nil, err
		}
		target = n.DefaultSchema()
	}
	if obj == nil {
		obj = object.NullValue
	}
	if object.Validate(target, obj) == nil {
		return object.From(target, obj)
	}
	c, ok := r.Converter(into)
	if !ok {
		return nil, schemata.ConversionFailed(op, object.Native(obj),
			fmt.Errorf("%s value cannot be converted to %s for %s", obj.Schema(), target, into))
	}
	out, err := c.Convert(obj, target)
	if err != nil {
		return nil, err
	}
	if err := object.Validate(target, out); err != nil {
		return nil, schemata.ConversionFailed(op, object.Native(obj), err)
	}
	return out, nil
}

func describeSchema(s schema.DataSchema) string {
	if s == nil {
		return "<nil>"
	}
	return s.String()
}
