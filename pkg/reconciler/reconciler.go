// Package reconciler merges a stored site configuration with a freshly
// discovered platform snapshot. It keeps the user's activation choices where
// the old and new state agree, activates what is new, drops what is gone and
// leaves a single configured version of each feature.
package reconciler

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// SnapshotProvider discovers the sites currently present on the platform.
// It is queried once per reconciliation.
type SnapshotProvider interface {
	DiscoverSites(ctx context.Context) ([]sites.SiteEntry, error)
}

// Store loads and saves configurations.
type Store interface {
	// LoadCurrent returns the current configuration, or (nil, nil) if none was saved.
	LoadCurrent(ctx context.Context) (*sites.Configuration, error)

	// Save makes cfg the current configuration. It either fully succeeds or
	// leaves the previous configuration current.
	Save(ctx context.Context, cfg *sites.Configuration) error

	// Location describes where configurations are kept.
	Location() string
}

// ReconciledFunc is called after a new configuration has been saved.
type ReconciledFunc func(ctx context.Context, cfg *sites.Configuration, changes *differ.Changeset)

// Reconciler is the main interface for reconciling stored configuration with the platform.
type Reconciler interface {
	// Reconcile discovers the platform, merges it with the stored
	// configuration, saves the result and notifies callbacks.
	Reconcile(ctx context.Context) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	snapshot   SnapshotProvider
	store      Store
	dryRun     bool
	reconciled []ReconciledFunc
	differ     differ.Differ
	options    *options
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	// Create options with defaults
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	// Create reconciler from options
	r := &reconciler{
		snapshot:   options.snapshot,
		store:      options.store,
		dryRun:     options.dryRun,
		reconciled: options.reconciled,
		differ:     options.differ,
		options:    options,
	}
	return r, nil
}

// reconcileContext holds shared state for one reconciliation.
type reconcileContext struct {
	logger *zerolog.Logger
	result *Result
}

// Reconcile performs reconciliation with clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context) (*Result, error) {
	// Step 1: Initialize context
	rctx := r.initialize(ctx)

	// Step 2: Discover the platform snapshot
	entries, err := r.discover(ctx, rctx)
	if err != nil {
		return nil, err
	}

	// Step 3: Load the previous configuration
	previous := r.loadPrevious(ctx, rctx)

	// Step 4: Build the new configuration
	cfg, stats := Build(logging.WithLogger(ctx, rctx.logger), previous, entries)
	r.stamp(cfg)
	rctx.logger = logging.FromContext(logging.WithConfiguration(logging.WithLogger(ctx, rctx.logger), cfg.ID))
	rctx.record(cfg, stats, len(entries))

	// Step 5: Compute changeset and digest
	changes := r.differ.Configurations(previous, cfg)
	digest, err := cfg.Digest()
	if err != nil {
		return nil, errors.WrapResource("digest", "configuration", cfg.ID, err)
	}
	rctx.result.Configuration = cfg
	rctx.result.Previous = previous
	rctx.result.Changeset = changes
	rctx.result.Digest = digest

	// Step 6: Validate invariants before anything is saved
	validation := Validate(cfg)
	for _, w := range validation.Warnings {
		rctx.logger.Warn().Str("feature", w.Feature).Msg(w.Message)
		rctx.result.Warnings = append(rctx.result.Warnings, w.String())
	}
	if !validation.IsValid() {
		return nil, errors.NewValidationError("configuration", cfg.ID, validation.String())
	}

	if r.dryRun {
		rctx.logger.Info().
			Str("digest", digest.Short()).
			Int("changes", changes.Summary.TotalChanges).
			Msg("Dry run, configuration not saved")
		rctx.result.Finalize()
		return rctx.result, nil
	}

	// Step 7: Persist, unless the caller gave up
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	}
	if err := r.store.Save(ctx, cfg); err != nil {
		return nil, asStoreError(errors.StoreOpWrite, r.store.Location(), err)
	}
	rctx.result.Metadata.Persisted = true
	rctx.logger.Info().
		Str("digest", digest.Short()).
		Int("sites", len(cfg.Sites)).
		Int("configured", cfg.ConfiguredCount()).
		Int("changes", changes.Summary.TotalChanges).
		Msg("Saved reconciled configuration")

	// Step 8: Notify
	for _, fn := range r.reconciled {
		fn(ctx, cfg, changes)
	}

	rctx.result.Finalize()
	return rctx.result, nil
}

// initialize sets up reconciliation context.
func (r *reconciler) initialize(ctx context.Context) *reconcileContext {
	logger := logging.FromContext(logging.WithOperation(ctx, "reconcile")).With().
		Str("store", r.store.Location()).
		Logger()

	result := NewResult()
	result.Metadata.Store = r.store.Location()
	result.Metadata.DryRun = r.dryRun

	return &reconcileContext{logger: &logger, result: result}
}

// discover queries the snapshot provider once.
func (r *reconciler) discover(ctx context.Context, rctx *reconcileContext) ([]sites.SiteEntry, error) {
	entries, err := r.snapshot.DiscoverSites(ctx)
	if err != nil {
		var snapshotErr *errors.SnapshotError
		if stderrors.As(err, &snapshotErr) {
			return nil, err
		}
		return nil, errors.WrapSnapshot("", err)
	}
	rctx.logger.Debug().Int("sites", len(entries)).Msg("Discovered platform sites")
	return entries, nil
}

// loadPrevious loads the stored configuration. A failed load is treated as
// an empty previous configuration.
func (r *reconciler) loadPrevious(ctx context.Context, rctx *reconcileContext) *sites.Configuration {
	previous, err := r.store.LoadCurrent(ctx)
	if err != nil {
		err = asStoreError(errors.StoreOpRead, r.store.Location(), err)
		rctx.logger.Warn().Err(err).Msg("Could not load previous configuration, starting from empty")
		rctx.result.Warnings = append(rctx.result.Warnings, err.Error())
		return nil
	}
	return previous
}

// stamp assigns identity, time and the reconciliation activity.
func (r *reconciler) stamp(cfg *sites.Configuration) {
	now := r.options.now()
	cfg.ID = r.options.newID()
	cfg.CreatedAt = now

	status := sites.ActivityStatusOK
	if r.dryRun {
		status = sites.ActivityStatusDryRun
	}
	cfg.AddActivity(sites.Activity{
		Action: sites.ActivityReconciliation,
		Label:  r.store.Location(),
		Status: status,
		Date:   now,
	})
}

func (rctx *reconcileContext) record(cfg *sites.Configuration, stats BuildStats, discovered int) {
	s := &rctx.result.Metadata.Stats
	s.SitesDiscovered = discovered
	s.SitesMatched = stats.Matched
	s.SitesCreated = stats.Created
	s.SitesDropped = stats.Dropped
	s.SitesSkipped = stats.Skipped
	s.FeaturesBroken = stats.Broken
	s.Comparisons = stats.Duplicates.Comparisons
	s.AmbiguousComparisons = stats.Duplicates.Ambiguous
	s.FeaturesConfigured = cfg.ConfiguredCount()
	s.FeaturesUnconfigured = cfg.FeatureCount() - s.FeaturesConfigured
	rctx.result.Demotions = stats.Duplicates.Demotions
}

// BuildStats summarizes how a configuration was assembled.
type BuildStats struct {
	Matched    int // sites reconciled against an old site
	Created    int // sites seen for the first time
	Dropped    int // old sites absent from the snapshot
	Skipped    int // snapshot entries repeating an earlier location
	Broken     int // configured features with missing plugins
	Duplicates DuplicateStats
}

// Build assembles a new configuration from the previous one and the
// discovered entries without touching previous. Sites appear in discovery
// order. The returned configuration has no ID or timestamp; callers that
// persist it assign them.
func Build(ctx context.Context, previous *sites.Configuration, entries []sites.SiteEntry) (*sites.Configuration, BuildStats) {
	logger := logging.FromContext(ctx)
	var stats BuildStats

	oldSites := make(map[string]*sites.ConfiguredSite)
	if previous != nil {
		for _, cs := range previous.Sites {
			oldSites[cs.Location()] = cs
		}
	}

	cfg := &sites.Configuration{}
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		location := entry.Location
		if location == "" && entry.Site != nil {
			location = entry.Site.Location
		}
		siteLogger := logging.FromContext(logging.WithSite(ctx, location))
		if seen[location] {
			stats.Skipped++
			siteLogger.Warn().Msg("Ignoring repeated site location in snapshot")
			continue
		}
		seen[location] = true

		if old, ok := oldSites[location]; ok {
			cfg.AddSite(ReconcileSite(old, entry))
			stats.Matched++
			continue
		}
		cfg.AddSite(NewConfiguredSite(entry))
		stats.Created++
		siteLogger.Info().Msg("Configured new site")
	}

	for location := range oldSites {
		if !seen[location] {
			stats.Dropped++
			logging.FromContext(logging.WithSite(ctx, location)).Info().Msg("Dropped site no longer present")
		}
	}

	stats.Duplicates = ResolveDuplicates(cfg, logger)

	for _, cs := range cfg.Sites {
		sctx := logging.WithSite(ctx, cs.Location())
		for _, ref := range cs.Policy.Configured() {
			if ref.Broken {
				stats.Broken++
				logging.FromContext(logging.WithFeature(sctx, ref.ID.String())).Warn().
					Msg("Configured feature is missing required plugins")
			}
		}
	}

	return cfg, stats
}

// asStoreError wraps err as a StoreError unless it already is one.
func asStoreError(op errors.StoreOp, location string, err error) error {
	var storeErr *errors.StoreError
	if stderrors.As(err, &storeErr) {
		return err
	}
	return errors.WrapStore(op, location, err)
}
