// Package sitecfg keeps a platform's site configuration in step with what
// is installed. It discovers the platform's sites and features, merges them
// with the stored configuration so that user activation choices survive,
// keeps a single configured version of each feature, and saves the result
// with history.
//
// Example usage:
//
//	// Create a client for a platform description
//	c, err := sitecfg.New(
//	    sitecfg.WithPlatformFile("/opt/app/platform.yaml"),
//	    sitecfg.WithStoreDriver(store.DriverSQLite, "/var/lib/app/sitecfg.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	// Register event hooks
//	c.OnFeatureActivated(func(change differ.FeatureChange) {
//	    log.Printf("Activated: %s at %s", change.Feature, change.Site)
//	})
//
//	// Reconcile once
//	result, err := c.Reconcile(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	// Or keep reconciling as the platform changes
//	err = c.Watch(ctx)
package sitecfg

import (
	"github.com/agentstation/sitecfg/internal/lock"
	"github.com/agentstation/sitecfg/internal/snapshot"
	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/internal/watch"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/reconciler"
)

// Client reconciles a platform's sites against stored configuration.
type Client interface {

	// Reconciler runs reconciliations
	Reconciler

	// Configurations reads saved configurations
	Configurations

	// Watcher reconciles on platform changes
	Watcher

	// Hooks provides access to event callback registration
	Hooks

	// Close releases the store
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// collaborators
	provider   reconciler.SnapshotProvider
	store      store.Store
	watchPaths watch.PathsFunc

	// lock serializes reconciliations in this process and with other
	// processes sharing the store
	lock *lock.Lock

	hooks *hooks
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	options, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: options,
		hooks:   newHooks(),
	}

	// snapshot provider, either given or read from the platform file
	switch {
	case options.provider != nil:
		c.provider = options.provider
	case options.platformFile != "":
		fp := snapshot.NewFileProvider(options.platformFile,
			snapshot.WithInstallBase(options.installBase),
			snapshot.WithConcurrency(options.concurrency))
		c.provider = fp
		c.watchPaths = fp.WatchPaths
	default:
		return nil, &errors.ValidationError{
			Field:   "platform",
			Message: "a platform file or snapshot provider is required",
		}
	}
	if wp, ok := options.provider.(interface{ WatchPaths() ([]string, error) }); ok {
		c.watchPaths = wp.WatchPaths
	}

	// store, either given or opened from the driver settings
	if options.store != nil {
		c.store = options.store
	} else {
		s, err := store.Open(options.storeDriver, options.storePath, store.WithHistoryLimit(options.historyLimit))
		if err != nil {
			return nil, errors.WrapResource("open", "store", options.storePath, err)
		}
		c.store = s
	}

	c.lock = lock.New(options.lockPath())
	return c, nil
}

// Close releases the store.
func (c *client) Close() error {
	return c.store.Close()
}
