package reconciler

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/errors"
)

// Options configures a reconciler.
type options struct {
	snapshot   SnapshotProvider
	store      Store
	dryRun     bool
	reconciled []ReconciledFunc
	differ     differ.Differ
	now        func() utc.Time
	newID      func() string
}

func defaultOptions() *options {
	return &options{
		differ: differ.New(),
		now:    utc.Now,
		newID:  uuid.NewString,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	options, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if options.snapshot == nil {
		return nil, &errors.ValidationError{Field: "snapshot", Message: "a snapshot provider is required"}
	}
	if options.store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "a configuration store is required"}
	}
	return options, nil
}

// WithSnapshotProvider sets where sites are discovered.
func WithSnapshotProvider(provider SnapshotProvider) Option {
	return func(o *options) error {
		if provider == nil {
			return &errors.ValidationError{
				Field:   "snapshot",
				Message: "cannot be nil",
			}
		}
		o.snapshot = provider
		return nil
	}
}

// WithStore sets where configurations are loaded from and saved to.
func WithStore(store Store) Option {
	return func(o *options) error {
		if store == nil {
			return &errors.ValidationError{
				Field:   "store",
				Message: "cannot be nil",
			}
		}
		o.store = store
		return nil
	}
}

// WithDryRun builds the new configuration without saving it or calling
// the reconciled callbacks.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithOnReconciled adds a callback invoked after a configuration is saved.
func WithOnReconciled(fn ReconciledFunc) Option {
	return func(o *options) error {
		if fn != nil {
			o.reconciled = append(o.reconciled, fn)
		}
		return nil
	}
}

// WithDiffer sets the differ used to compute the changeset.
func WithDiffer(d differ.Differ) Option {
	return func(o *options) error {
		if d != nil {
			o.differ = d
		}
		return nil
	}
}

// WithClock sets the time source for configuration and activity timestamps.
func WithClock(now func() utc.Time) Option {
	return func(o *options) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithIDGenerator sets the configuration ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) error {
		if newID != nil {
			o.newID = newID
		}
		return nil
	}
}
