package envelope

import (
	"sync"

	"github.com/reoring/schemata/schema"
)

// SchemaStore remembers writer schemas by fingerprint so envelopes written
// under an older schema can still be read.
type SchemaStore interface {
	Put(fingerprint uint64, s schema.DataSchema)
	Get(fingerprint uint64) (schema.DataSchema, bool)
}

// MemoryStore is an in-process SchemaStore.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[uint64]schema.DataSchema
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schemas: map[uint64]schema.DataSchema{}}
}

func (m *MemoryStore) Put(fingerprint uint64, s schema.DataSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[fingerprint]; !ok {
		m.schemas[fingerprint] = s
	}
}

func (m *MemoryStore) Get(fingerprint uint64) (schema.DataSchema, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[fingerprint]
	return s, ok
}

// Len returns the number of stored schemas.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.schemas)
}
