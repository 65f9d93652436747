package sitecfg

import (
	"context"

	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/reconciler"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Compile-time interface check to ensure proper implementation.
var _ Reconciler = (*client)(nil)

// Reconciler runs reconciliations.
type Reconciler interface {
	// Reconcile discovers the platform, merges it with the stored
	// configuration and saves the result. Hooks run after the save.
	Reconcile(ctx context.Context, opts ...ReconcileOption) (*reconciler.Result, error)
}

// reconcileOptions configures one reconciliation.
type reconcileOptions struct {
	dryRun bool
}

// ReconcileOption configures one reconciliation.
type ReconcileOption func(*reconcileOptions)

// WithDryRun builds and reports the new configuration without saving it.
func WithDryRun(enabled bool) ReconcileOption {
	return func(o *reconcileOptions) {
		o.dryRun = enabled
	}
}

// Reconcile runs one reconciliation while holding the configuration lock.
func (c *client) Reconcile(ctx context.Context, opts ...ReconcileOption) (*reconciler.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse options
	ro := &reconcileOptions{}
	for _, opt := range opts {
		opt(ro)
	}

	// Step 2: Setup context with timeout
	var cancel context.CancelFunc
	if c.options.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.options.timeout)
	} else {
		cancel = func() {} // No-op cancel if no timeout
	}
	defer cancel()

	// Step 3: Serialize with other reconciliations
	if err := c.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.lock.Release(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Failed to release configuration lock")
		}
	}()

	// Step 4: Create the reconciler
	r, err := reconciler.New(
		reconciler.WithSnapshotProvider(c.provider),
		reconciler.WithStore(c.store),
		reconciler.WithDryRun(ro.dryRun),
		reconciler.WithOnReconciled(func(ctx context.Context, cfg *sites.Configuration, changes *differ.Changeset) {
			c.hooks.trigger(ctx, cfg, changes)
		}),
	)
	if err != nil {
		return nil, errors.WrapResource("create", "reconciler", "", err)
	}

	// Step 5: Reconcile
	result, err := r.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	// Step 6: Log change summary
	logger := logging.FromContext(ctx)
	if result.HasChanges() {
		logger.Info().
			Int("sites_added", result.Changeset.Summary.SitesAdded).
			Int("sites_removed", result.Changeset.Summary.SitesRemoved).
			Int("activated", result.Changeset.Summary.FeaturesActivated).
			Int("deactivated", result.Changeset.Summary.FeaturesDeactivated).
			Msg("Changes detected")
	} else {
		logger.Info().Msg("No changes detected")
	}
	return result, nil
}
