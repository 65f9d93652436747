package reconciler_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sitecfg/pkg/differ"
	pkgerrors "github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/reconciler"
	"github.com/agentstation/sitecfg/pkg/sites"
)

const (
	s1 = "file:///opt/s1/"
	s2 = "file:///opt/s2/"
	s3 = "file:///opt/s3/"
)

// Helper function to create a feature reference
func ref(name, version string) *sites.FeatureReference {
	return sites.NewFeatureReference(name, version, "features/"+name+"_"+version+"/")
}

// Helper function to create a snapshot entry
func entry(location string, mode sites.PolicyMode, refs ...*sites.FeatureReference) sites.SiteEntry {
	return sites.SiteEntry{
		PlatformURL: location,
		Location:    location,
		Updatable:   true,
		Policy:      mode,
		Site:        sites.NewSite(location, refs...),
	}
}

// Helper function to create a previously reconciled site
func configured(location string, mode sites.PolicyMode, on []*sites.FeatureReference, off ...*sites.FeatureReference) *sites.ConfiguredSite {
	site := sites.NewSite(location)
	policy := sites.NewPolicy(mode)
	for _, r := range on {
		site.Features = append(site.Features, r)
		policy.AddConfigured(r)
	}
	for _, r := range off {
		site.Features = append(site.Features, r)
		policy.AddUnconfigured(r)
	}
	return &sites.ConfiguredSite{Site: site, Policy: policy, PlatformURL: location, Updatable: true}
}

func previous(css ...*sites.ConfiguredSite) *sites.Configuration {
	cfg := sites.NewConfiguration()
	for _, cs := range css {
		cfg.AddSite(cs)
	}
	return cfg
}

func names(refs []*sites.FeatureReference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID.String())
	}
	return out
}

func build(old *sites.Configuration, entries ...sites.SiteEntry) (*sites.Configuration, reconciler.BuildStats) {
	ctx := logging.WithLogger(context.Background(), logging.NewNopLogger())
	return reconciler.Build(ctx, old, entries)
}

func TestSameVersionAtTwoURLsKeepsBothStates(t *testing.T) {
	first := sites.NewFeatureReference("F", "1.0", "features/F_1.0/")
	second := sites.NewFeatureReference("F", "1.0", "extra/F_1.0/")
	old := previous(configured(s1, sites.PolicyUserInclude, []*sites.FeatureReference{first}, second))

	cfg, stats := build(old, entry(s1, sites.PolicyUserInclude,
		sites.NewFeatureReference("F", "1.0", "features/F_1.0/"),
		sites.NewFeatureReference("F", "1.0", "extra/F_1.0/")))

	policy := cfg.Site(s1).Policy
	assert.Equal(t, 2, policy.Len())
	assert.True(t, policy.IsConfigured(first))
	assert.False(t, policy.IsConfigured(second))
	assert.True(t, policy.Contains(second))
	assert.Empty(t, stats.Duplicates.Demotions)
}

func TestScenarioNewFeatureJoinsMatchedSite(t *testing.T) {
	old := previous(configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}))

	cfg, stats := build(old, entry(s1, sites.PolicyUserExclude, ref("F", "1.0"), ref("G", "1.0")))

	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, []string{"F@1.0", "G@1.0"}, names(cfg.Sites[0].Policy.Configured()))
	assert.Empty(t, cfg.Sites[0].Policy.Unconfigured())
	assert.Equal(t, 1, stats.Matched)
}

func TestScenarioGreaterVersionWinsAcrossSites(t *testing.T) {
	old := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "2.0")}),
	)

	cfg, stats := build(old,
		entry(s1, sites.PolicyUserExclude, ref("F", "1.0")),
		entry(s2, sites.PolicyUserExclude, ref("F", "2.0")),
	)

	assert.Empty(t, cfg.Site(s1).Policy.Configured())
	assert.Equal(t, []string{"F@1.0"}, names(cfg.Site(s1).Policy.Unconfigured()))
	assert.Equal(t, []string{"F@2.0"}, names(cfg.Site(s2).Policy.Configured()))

	require.Len(t, stats.Duplicates.Demotions, 1)
	assert.Equal(t, reconciler.Demotion{
		Site:       s1,
		Feature:    sites.FeatureIdentity{Name: "F", Version: "1.0"},
		WinnerSite: s2,
		Winner:     sites.FeatureIdentity{Name: "F", Version: "2.0"},
	}, stats.Duplicates.Demotions[0])
}

func TestScenarioRemovedSiteIsDropped(t *testing.T) {
	old := previous(configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}))

	cfg, stats := build(old)

	assert.Empty(t, cfg.Sites)
	assert.Nil(t, cfg.Site(s1))
	assert.Equal(t, 1, stats.Dropped)
}

func TestIntentPreservation(t *testing.T) {
	f, g := ref("F", "1.0"), ref("G", "1.0")
	old := previous(configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{f}, g))

	cfg, _ := build(old, entry(s1, sites.PolicyUserExclude, ref("F", "1.0"), ref("G", "1.0")))

	policy := cfg.Site(s1).Policy
	assert.True(t, policy.IsConfigured(f))
	assert.False(t, policy.IsConfigured(g))
	assert.True(t, policy.Contains(g))
}

func TestCarryOverMatchesByLocationAcrossVersionBump(t *testing.T) {
	old := previous(configured(s1, sites.PolicyUserExclude, nil,
		sites.NewFeatureReference("F", "1.0", "features/F/")))

	cfg, _ := build(old, entry(s1, sites.PolicyUserExclude,
		sites.NewFeatureReference("F", "1.1", "features/F/")))

	policy := cfg.Site(s1).Policy
	assert.Equal(t, []string{"F@1.1"}, names(policy.Unconfigured()), "unconfigured state follows the feature location")
}

func TestNewFeatureUnderExcludeByDefault(t *testing.T) {
	old := previous(configured(s1, sites.PolicyUserInclude, []*sites.FeatureReference{ref("F", "1.0")}))

	// The snapshot's policy is ignored for matched sites; the old mode applies.
	cfg, _ := build(old, entry(s1, sites.PolicyUserExclude, ref("F", "1.0"), ref("G", "1.0")))

	policy := cfg.Site(s1).Policy
	assert.Equal(t, sites.PolicyUserInclude, policy.Mode)
	assert.Equal(t, []string{"F@1.0"}, names(policy.Configured()))
	assert.Equal(t, []string{"G@1.0"}, names(policy.Unconfigured()))
}

func TestNewSiteActivatesEverything(t *testing.T) {
	cfg, stats := build(nil, entry(s1, sites.PolicyUserInclude, ref("F", "1.0"), ref("G", "2.0")))

	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, []string{"F@1.0", "G@2.0"}, names(cfg.Sites[0].Policy.Configured()))
	assert.Equal(t, sites.PolicyUserInclude, cfg.Sites[0].Policy.Mode)
	assert.Equal(t, 1, stats.Created)
}

func TestDropOnRemoval(t *testing.T) {
	f, g := ref("F", "1.0"), ref("G", "1.0")
	old := previous(configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{f, g}))

	cfg, _ := build(old, entry(s1, sites.PolicyUserExclude, ref("F", "1.0")))

	policy := cfg.Site(s1).Policy
	assert.False(t, policy.Contains(g))
	assert.Equal(t, 1, policy.Len())
}

func TestAttributesComeFromOldSite(t *testing.T) {
	old := configured(s1, sites.PolicyManagedOnly, []*sites.FeatureReference{ref("F", "1.0")})
	old.Updatable = false
	old.PlatformURL = "platform:/base/"

	e := entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))
	e.PluginPath = []string{"plugins/a/", "plugins/b/"}

	cs := reconciler.ReconcileSite(old, e)

	assert.False(t, cs.Updatable)
	assert.Equal(t, "platform:/base/", cs.PlatformURL)
	assert.Equal(t, sites.PolicyManagedOnly, cs.Policy.Mode)
	assert.Equal(t, []string{"plugins/a/", "plugins/b/"}, cs.PreviousPluginPath)
	assert.Same(t, e.Site, cs.Site)
}

func TestReconcileSiteWithoutOld(t *testing.T) {
	e := entry(s1, sites.PolicyUserInclude, ref("F", "1.0"))
	cs := reconciler.ReconcileSite(nil, e)
	assert.True(t, cs.Policy.IsConfigured(ref("F", "1.0")))
}

func TestSiteLocationFollowsEntry(t *testing.T) {
	e := entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))
	e.Site = sites.NewSite("", ref("F", "1.0"))

	cfg, _ := build(nil, e)
	require.NotNil(t, cfg.Site(s1))

	cfg, _ = build(nil, sites.SiteEntry{Location: s2})
	require.NotNil(t, cfg.Site(s2))
	assert.Zero(t, cfg.Site(s2).Policy.Len())
}

func TestSiteOrderFollowsDiscovery(t *testing.T) {
	old := previous(
		configured(s3, sites.PolicyUserExclude, nil),
		configured(s1, sites.PolicyUserExclude, nil),
	)

	cfg, _ := build(old,
		entry(s1, sites.PolicyUserExclude),
		entry(s2, sites.PolicyUserExclude),
		entry(s3, sites.PolicyUserExclude),
	)

	var got []string
	for _, cs := range cfg.Sites {
		got = append(got, cs.Location())
	}
	assert.Equal(t, []string{s1, s2, s3}, got)
}

func TestRepeatedLocationIsSkipped(t *testing.T) {
	cfg, stats := build(nil,
		entry(s1, sites.PolicyUserExclude, ref("F", "1.0")),
		entry(s1, sites.PolicyUserExclude, ref("G", "1.0")),
	)

	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, []string{"F@1.0"}, names(cfg.Sites[0].Policy.References()))
	assert.Equal(t, 1, stats.Skipped)
}

func TestIdempotence(t *testing.T) {
	entries := []sites.SiteEntry{
		entry(s1, sites.PolicyUserExclude, ref("F", "1.0"), ref("G", "1.0")),
		entry(s2, sites.PolicyUserInclude, ref("F", "2.0"), ref("H", "1.0")),
	}
	old := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}, ref("G", "1.0")),
		configured(s2, sites.PolicyUserInclude, []*sites.FeatureReference{ref("F", "2.0")}, ref("H", "1.0")),
	)

	first, _ := build(old, entries...)
	second, _ := build(first, entries...)
	third, _ := build(second, entries...)

	d1, err := first.Digest()
	require.NoError(t, err)
	d2, err := second.Digest()
	require.NoError(t, err)
	d3, err := third.Digest()
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, d2, d3)
	assert.True(t, differ.New().Configurations(first, second).IsEmpty())
}

func TestPreviousIsNotModified(t *testing.T) {
	old := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0"), ref("G", "1.0")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "2.0")}),
	)
	before, err := old.Digest()
	require.NoError(t, err)

	build(old,
		entry(s1, sites.PolicyUserExclude, ref("F", "1.0")),
		entry(s2, sites.PolicyUserExclude, ref("F", "2.0")),
	)

	after, err := old.Digest()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, old.Site(s1).Policy.IsConfigured(ref("F", "1.0")))
}

func TestBrokenFeaturesStayConfigured(t *testing.T) {
	broken := ref("F", "1.0")
	broken.Broken = true
	logger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), logger.Logger)

	cfg, stats := reconciler.Build(ctx, nil, []sites.SiteEntry{entry(s1, sites.PolicyUserExclude, broken)})

	assert.True(t, cfg.Site(s1).Policy.IsConfigured(broken))
	assert.Equal(t, 1, stats.Broken)
	logger.AssertContains(t, "missing required plugins")
	logger.AssertContains(t, `"site":"file:///opt/s1/"`)
	logger.AssertContains(t, `"feature":"F@1.0"`)
}

func TestReconcileLogsCarryConfigurationID(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), logger.Logger)

	store := reconciler.NewMockStore(nil)
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)

	_, err := newReconciler(t, snapshot, store).Reconcile(ctx)
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSpace(logger.Output()), "\n") {
		if strings.Contains(line, "Saved reconciled configuration") {
			assert.Contains(t, line, `"configuration_id":"cfg-1"`)
			assert.Contains(t, line, `"operation":"reconcile"`)
			return
		}
	}
	t.Fatalf("no save line in log output:\n%s", logger.Output())
}

// fixedClock returns a clock frozen at a known instant.
func fixedClock() func() utc.Time {
	at := utc.New(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return func() utc.Time { return at }
}

func newReconciler(t *testing.T, snapshot reconciler.SnapshotProvider, store reconciler.Store, opts ...reconciler.Option) reconciler.Reconciler {
	t.Helper()
	opts = append([]reconciler.Option{
		reconciler.WithSnapshotProvider(snapshot),
		reconciler.WithStore(store),
		reconciler.WithClock(fixedClock()),
		reconciler.WithIDGenerator(func() string { return "cfg-1" }),
	}, opts...)
	r, err := reconciler.New(opts...)
	require.NoError(t, err)
	return r
}

func TestReconcilePersistsAndNotifies(t *testing.T) {
	ctx := logging.WithLogger(context.Background(), logging.NewNopLogger())
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)
	store := reconciler.NewMockStore(nil)

	var notified *sites.Configuration
	var changes *differ.Changeset
	r := newReconciler(t, snapshot, store, reconciler.WithOnReconciled(
		func(_ context.Context, cfg *sites.Configuration, cs *differ.Changeset) {
			notified, changes = cfg, cs
		}))

	result, err := r.Reconcile(ctx)
	require.NoError(t, err)

	require.Len(t, store.Saved(), 1)
	saved := store.Saved()[0]
	assert.Same(t, result.Configuration, saved)
	assert.Same(t, saved, notified)
	assert.Equal(t, 1, changes.Summary.SitesAdded)
	assert.Equal(t, 1, snapshot.Calls())

	assert.Equal(t, "cfg-1", saved.ID)
	assert.Equal(t, fixedClock()(), saved.CreatedAt)
	require.Len(t, saved.Activities, 1)
	assert.Equal(t, sites.Activity{
		Action: sites.ActivityReconciliation,
		Label:  "memory",
		Status: sites.ActivityStatusOK,
		Date:   fixedClock()(),
	}, saved.Activities[0])

	assert.True(t, result.Metadata.Persisted)
	assert.Equal(t, "memory", result.Metadata.Store)
	assert.Equal(t, 1, result.Metadata.Stats.SitesCreated)
	assert.Equal(t, 1, result.Metadata.Stats.FeaturesConfigured)
	assert.True(t, result.HasChanges())
	assert.Contains(t, result.Summary(), "Reconciliation successful")
}

func TestReconcileDryRun(t *testing.T) {
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)
	store := reconciler.NewMockStore(nil)
	called := false

	r := newReconciler(t, snapshot, store,
		reconciler.WithDryRun(true),
		reconciler.WithOnReconciled(func(context.Context, *sites.Configuration, *differ.Changeset) { called = true }),
	)

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.Saved())
	assert.False(t, called)
	assert.False(t, result.Metadata.Persisted)
	assert.True(t, result.Metadata.DryRun)
	assert.Equal(t, sites.ActivityStatusDryRun, result.Configuration.Activities[0].Status)
	assert.Contains(t, result.Summary(), "Dry run completed")
}

func TestReconcileSnapshotFailure(t *testing.T) {
	store := reconciler.NewMockStore(nil)
	r := newReconciler(t, reconciler.NewMockSnapshot(nil, errors.New("platform.yaml missing")), store)

	result, err := r.Reconcile(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, pkgerrors.IsSnapshotUnavailable(err))
	assert.Empty(t, store.Saved())
}

func TestReconcileKeepsTypedSnapshotError(t *testing.T) {
	cause := pkgerrors.NewSnapshotError("platform:/base/", errors.New("unresolvable"))
	r := newReconciler(t, reconciler.NewMockSnapshot(nil, cause), reconciler.NewMockStore(nil))

	_, err := r.Reconcile(context.Background())
	var snapshotErr *pkgerrors.SnapshotError
	require.True(t, errors.As(err, &snapshotErr))
	assert.Equal(t, "platform:/base/", snapshotErr.Site)
}

func TestReconcileLoadFailureStartsEmpty(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), logger.Logger)

	// The stored configuration had F unconfigured, but it cannot be read.
	stored := previous(configured(s1, sites.PolicyUserExclude, nil, ref("F", "1.0")))
	store := reconciler.NewMockStore(stored).FailLoad(errors.New("corrupt file"))
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)

	result, err := newReconciler(t, snapshot, store).Reconcile(ctx)
	require.NoError(t, err)

	assert.Nil(t, result.Previous)
	assert.True(t, result.Configuration.Site(s1).Policy.IsConfigured(ref("F", "1.0")))
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "configuration store read failed")
	logger.AssertContains(t, "starting from empty")
}

func TestReconcileSaveFailure(t *testing.T) {
	called := false
	store := reconciler.NewMockStore(nil).FailSave(errors.New("disk full"))
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)

	r := newReconciler(t, snapshot, store,
		reconciler.WithOnReconciled(func(context.Context, *sites.Configuration, *differ.Changeset) { called = true }))

	result, err := r.Reconcile(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, pkgerrors.IsStoreWrite(err))
	assert.False(t, called)
}

func TestReconcileCanceledBeforePersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := reconciler.NewMockStore(nil)
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{entry(s1, sites.PolicyUserExclude, ref("F", "1.0"))}, nil)

	_, err := newReconciler(t, snapshot, store).Reconcile(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Saved())
}

func TestReconcileTwiceIsStable(t *testing.T) {
	snapshot := reconciler.NewMockSnapshot([]sites.SiteEntry{
		entry(s1, sites.PolicyUserExclude, ref("F", "1.0")),
		entry(s2, sites.PolicyUserExclude, ref("F", "2.0")),
	}, nil)
	store := reconciler.NewMockStore(nil)
	r := newReconciler(t, snapshot, store)

	first, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.False(t, second.HasChanges())
	assert.Same(t, first.Configuration, second.Previous)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := reconciler.New(reconciler.WithStore(reconciler.NewMockStore(nil)))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = reconciler.New(reconciler.WithSnapshotProvider(reconciler.NewMockSnapshot(nil, nil)))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = reconciler.New(reconciler.WithStore(nil))
	assert.True(t, pkgerrors.IsValidationError(err))
}
