package reconciler

import (
	"context"
	"sync"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// MockSnapshot is a test implementation of SnapshotProvider.
type MockSnapshot struct {
	mu      sync.Mutex
	entries []sites.SiteEntry
	err     error
	calls   int
}

// NewMockSnapshot creates a snapshot provider returning entries, or err if set.
func NewMockSnapshot(entries []sites.SiteEntry, err error) *MockSnapshot {
	return &MockSnapshot{entries: entries, err: err}
}

// DiscoverSites returns the configured entries.
func (m *MockSnapshot) DiscoverSites(_ context.Context) ([]sites.SiteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// Calls returns how many times DiscoverSites was invoked.
func (m *MockSnapshot) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockStore is a test implementation of Store that keeps every saved configuration.
type MockStore struct {
	mu      sync.Mutex
	current *sites.Configuration
	saved   []*sites.Configuration
	loadErr error
	saveErr error
}

// NewMockStore creates a store whose current configuration is current.
func NewMockStore(current *sites.Configuration) *MockStore {
	return &MockStore{current: current}
}

// FailLoad makes LoadCurrent return err.
func (m *MockStore) FailLoad(err error) *MockStore {
	m.loadErr = err
	return m
}

// FailSave makes Save return err.
func (m *MockStore) FailSave(err error) *MockStore {
	m.saveErr = err
	return m
}

// LoadCurrent returns the current configuration.
func (m *MockStore) LoadCurrent(_ context.Context) (*sites.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.current, nil
}

// Save replaces the current configuration.
func (m *MockStore) Save(_ context.Context, cfg *sites.Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = cfg
	m.saved = append(m.saved, cfg)
	return nil
}

// Location returns a fixed label.
func (m *MockStore) Location() string {
	return "memory"
}

// Saved returns every configuration passed to a successful Save.
func (m *MockStore) Saved() []*sites.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*sites.Configuration(nil), m.saved...)
}
