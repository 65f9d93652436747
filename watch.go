package sitecfg

import (
	"context"

	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/internal/watch"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ Watcher = (*client)(nil)

// Watcher reconciles whenever the platform changes.
type Watcher interface {
	// Watch reconciles once, then again after every settled burst of
	// platform changes, until ctx is done
	Watch(ctx context.Context) error
}

// Watch reconciles once and then on every platform change.
func (c *client) Watch(ctx context.Context) error {
	if c.watchPaths == nil {
		return &errors.ConfigError{
			Component: "watch",
			Message:   "the snapshot provider does not report paths to watch",
		}
	}
	logger := logging.FromContext(ctx)

	reconcile := func(ctx context.Context) error {
		result, err := c.Reconcile(ctx)
		if err != nil {
			return err
		}
		logger.Info().Msg(result.Summary())
		return nil
	}

	if err := reconcile(ctx); err != nil {
		logger.Error().Err(err).Msg("Initial reconciliation failed")
	}

	logger.Info().Msg("Watching platform for changes")
	// the store and lock may live beside the platform file
	own := []string{c.lock.Path()}
	if loc := c.store.Location(); loc != string(store.DriverMemory) {
		own = append(own, loc)
	}
	w := watch.New(c.watchPaths,
		watch.WithDebounce(c.options.debounce),
		watch.WithIgnore(own...),
	)
	return w.Run(ctx, reconcile)
}
