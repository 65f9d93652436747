// Package store provides the configuration stores: a directory of YAML
// documents, a SQLite database and an in-memory store for tests.
//
// Every store keeps the current configuration plus a bounded history of the
// configurations saved before it. Save is all-or-nothing: after a failed
// Save, LoadCurrent still returns the previous configuration.
package store

import (
	"context"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Store persists configurations.
type Store interface {
	// LoadCurrent returns the current configuration, or (nil, nil) if none was saved.
	LoadCurrent(ctx context.Context) (*sites.Configuration, error)

	// Save makes cfg the current configuration and prunes old history.
	Save(ctx context.Context, cfg *sites.Configuration) error

	// History returns up to limit saved configurations, newest first.
	// The current configuration is the first entry. limit <= 0 means all.
	History(ctx context.Context, limit int) ([]*sites.Configuration, error)

	// Location describes where configurations are kept.
	Location() string

	// Close releases resources held by the store.
	Close() error
}

// Driver selects a store implementation.
type Driver string

const (
	// DriverYAML keeps configurations as YAML files in a directory.
	DriverYAML Driver = constants.StoreDriverYAML
	// DriverSQLite keeps configurations in a SQLite database.
	DriverSQLite Driver = constants.StoreDriverSQLite
	// DriverMemory keeps configurations in memory.
	DriverMemory Driver = "memory"
)

type options struct {
	historyLimit int
}

// Option configures a store.
type Option func(*options)

// WithHistoryLimit bounds how many configurations are kept, the current one included.
func WithHistoryLimit(limit int) Option {
	return func(o *options) {
		o.historyLimit = limit
	}
}

func newOptions(opts ...Option) *options {
	o := &options{historyLimit: constants.DefaultHistoryLimit}
	for _, opt := range opts {
		opt(o)
	}
	if o.historyLimit < 1 {
		o.historyLimit = 1
	}
	return o
}

// Open opens the store selected by driver at path.
func Open(driver Driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverYAML, "":
		return NewFileStore(path, opts...)
	case DriverSQLite:
		return OpenSQLite(path, opts...)
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, errors.NewValidationError("store.driver", driver, "must be one of yaml, sqlite, memory")
	}
}
