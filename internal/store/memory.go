package store

import (
	"context"
	"sync"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// MemoryStore keeps configurations in memory. Saved configurations are
// copied through their records so later changes by the caller do not leak in.
type MemoryStore struct {
	mu      sync.RWMutex
	records []sites.ConfigurationRecord // newest first
	limit   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{limit: newOptions(opts...).historyLimit}
}

// LoadCurrent returns the current configuration.
func (m *MemoryStore) LoadCurrent(_ context.Context) (*sites.Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	return m.records[0].Configuration()
}

// Save makes cfg current.
func (m *MemoryStore) Save(_ context.Context, cfg *sites.Configuration) error {
	rec := cfg.Record()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]sites.ConfigurationRecord{rec}, m.records...)
	if len(m.records) > m.limit {
		m.records = m.records[:m.limit]
	}
	return nil
}

// History returns saved configurations, newest first.
func (m *MemoryStore) History(_ context.Context, limit int) ([]*sites.Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]*sites.Configuration, 0, len(records))
	for _, rec := range records {
		cfg, err := rec.Configuration()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Location returns "memory".
func (m *MemoryStore) Location() string {
	return string(DriverMemory)
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
