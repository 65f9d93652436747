package sitecfg

import (
	"context"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// Compile-time interface check to ensure proper implementation.
var _ Configurations = (*client)(nil)

// Configurations reads saved configurations.
type Configurations interface {
	// Current returns the current configuration, or nil if none was saved
	Current(ctx context.Context) (*sites.Configuration, error)

	// History returns up to limit saved configurations, newest first.
	// A limit of zero returns all of them.
	History(ctx context.Context, limit int) ([]*sites.Configuration, error)

	// StoreLocation describes where configurations are kept
	StoreLocation() string
}

// Current returns the current configuration.
func (c *client) Current(ctx context.Context) (*sites.Configuration, error) {
	return c.store.LoadCurrent(ctx)
}

// History returns saved configurations, newest first.
func (c *client) History(ctx context.Context, limit int) ([]*sites.Configuration, error) {
	return c.store.History(ctx, limit)
}

// StoreLocation describes where configurations are kept.
func (c *client) StoreLocation() string {
	return c.store.Location()
}
