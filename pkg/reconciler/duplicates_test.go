package reconciler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/reconciler"
	"github.com/agentstation/sitecfg/pkg/sites"
)

func TestIntraSiteDuplicate(t *testing.T) {
	cfg := previous(configured(s1, sites.PolicyUserExclude,
		[]*sites.FeatureReference{ref("F", "1.0"), ref("F", "1.2"), ref("G", "1.0")}))

	stats := reconciler.ResolveDuplicates(cfg, nil)

	policy := cfg.Site(s1).Policy
	assert.Equal(t, []string{"F@1.2", "G@1.0"}, names(policy.Configured()))
	assert.Equal(t, []string{"F@1.0"}, names(policy.Unconfigured()))
	assert.Len(t, stats.Demotions, 1)
	assert.Equal(t, 1, stats.Comparisons)
}

func TestIntraSiteThreeVersions(t *testing.T) {
	cfg := previous(configured(s1, sites.PolicyUserExclude,
		[]*sites.FeatureReference{ref("F", "2.0"), ref("F", "1.0"), ref("F", "3.0")}))

	stats := reconciler.ResolveDuplicates(cfg, nil)

	assert.Equal(t, []string{"F@3.0"}, names(cfg.Site(s1).Policy.Configured()))
	assert.Len(t, stats.Demotions, 2, "a feature is only recorded the first time it is demoted")
	assert.Equal(t, 3, stats.Comparisons)
}

func TestDottedPrereleaseKeepsLatest(t *testing.T) {
	cfg := previous(configured(s1, sites.PolicyUserExclude,
		[]*sites.FeatureReference{ref("F", "1.0.0-rc.10"), ref("F", "1.0.0-rc.9")}))

	reconciler.ResolveDuplicates(cfg, nil)

	assert.Equal(t, []string{"F@1.0.0-rc.10"}, names(cfg.Site(s1).Policy.Configured()))
	assert.Equal(t, []string{"F@1.0.0-rc.9"}, names(cfg.Site(s1).Policy.Unconfigured()))
}

func TestEqualVersionsAcrossSitesStayConfigured(t *testing.T) {
	cfg := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}),
	)

	stats := reconciler.ResolveDuplicates(cfg, nil)

	assert.Len(t, cfg.Site(s1).Policy.Configured(), 1)
	assert.Len(t, cfg.Site(s2).Policy.Configured(), 1)
	assert.Empty(t, stats.Demotions)
	assert.Zero(t, stats.Ambiguous)
}

func TestIncomparableVersionsStayConfigured(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "nightly")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "2.0")}),
	)

	stats := reconciler.ResolveDuplicates(cfg, logger.Logger)

	assert.Len(t, cfg.Site(s1).Policy.Configured(), 1)
	assert.Len(t, cfg.Site(s2).Policy.Configured(), 1)
	assert.Equal(t, 1, stats.Ambiguous)
	logger.AssertContains(t, "ambiguous version comparison")
}

func TestCrossSiteSweepContinuesAfterDemotion(t *testing.T) {
	cfg := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "2.0")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0")}),
		configured(s3, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "3.0")}),
	)

	stats := reconciler.ResolveDuplicates(cfg, nil)

	assert.Empty(t, cfg.Site(s1).Policy.Configured())
	assert.Empty(t, cfg.Site(s2).Policy.Configured())
	assert.Equal(t, []string{"F@3.0"}, names(cfg.Site(s3).Policy.Configured()))

	require.Len(t, stats.Demotions, 2)
	assert.Equal(t, s2, stats.Demotions[0].Site)
	assert.Equal(t, s1, stats.Demotions[1].Site)
	assert.Equal(t, s3, stats.Demotions[1].WinnerSite)
}

func TestAtMostOneConfiguredVersionPerName(t *testing.T) {
	cfg := previous(
		configured(s1, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.0"), ref("G", "4.0"), ref("H", "1.0")}),
		configured(s2, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.5"), ref("G", "2.0")}),
		configured(s3, sites.PolicyUserExclude, []*sites.FeatureReference{ref("F", "1.1"), ref("G", "3.0"), ref("H", "0.9")}),
	)

	reconciler.ResolveDuplicates(cfg, nil)

	winners := map[string][]string{}
	for _, cs := range cfg.Sites {
		for _, r := range cs.Policy.Configured() {
			winners[r.ID.Name] = append(winners[r.ID.Name], cs.Location()+" "+r.ID.Version)
		}
	}
	assert.Equal(t, []string{s2 + " 1.5"}, winners["F"])
	assert.Equal(t, []string{s1 + " 4.0"}, winners["G"])
	assert.Equal(t, []string{s1 + " 1.0"}, winners["H"])
}

func TestResolveDuplicatesNil(t *testing.T) {
	assert.Empty(t, reconciler.ResolveDuplicates(nil, nil).Demotions)
}
