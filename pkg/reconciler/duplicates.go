package reconciler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/sites"
	"github.com/agentstation/sitecfg/pkg/version"
)

// Demotion records a configured feature that lost to a greater version.
type Demotion struct {
	Site       string
	Feature    sites.FeatureIdentity
	WinnerSite string
	Winner     sites.FeatureIdentity
}

// DuplicateStats summarizes a duplicate resolution pass.
type DuplicateStats struct {
	Comparisons int
	Ambiguous   int
	Demotions   []Demotion
}

// ResolveDuplicates leaves at most one version of each feature name
// configured across cfg, modifying the policies of cfg in place.
//
// Each site is checked on its own first, then every pair of sites (i, j)
// with i < j is compared in configuration order. When two configured
// features share a name, the strictly greater version wins and the other is
// moved to unconfigured. Equal versions and versions with no defined order
// are left alone. A demotion never stops the sweep and nothing is revisited.
func ResolveDuplicates(cfg *sites.Configuration, logger *zerolog.Logger) DuplicateStats {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &duplicateResolver{logger: logger}
	if cfg == nil {
		return r.stats
	}

	// Step 1: within each site
	for _, cs := range cfg.Sites {
		configured := cs.Policy.Configured()
		for i := 0; i < len(configured)-1; i++ {
			for j := i + 1; j < len(configured); j++ {
				r.compare(cs, configured[i], cs, configured[j])
			}
		}
	}

	// Step 2: across sites
	for i := 0; i < len(cfg.Sites)-1; i++ {
		left := cfg.Sites[i]
		for _, candidate := range left.Policy.Configured() {
			for j := i + 1; j < len(cfg.Sites); j++ {
				right := cfg.Sites[j]
				for _, other := range right.Policy.Configured() {
					r.compare(left, candidate, right, other)
				}
			}
		}
	}

	return r.stats
}

type duplicateResolver struct {
	logger *zerolog.Logger
	stats  DuplicateStats
}

func (r *duplicateResolver) compare(aSite *sites.ConfiguredSite, a *sites.FeatureReference, bSite *sites.ConfiguredSite, b *sites.FeatureReference) {
	if a == nil || b == nil || a == b || a.ID.Name == "" || a.ID.Name != b.ID.Name {
		return
	}
	r.stats.Comparisons++

	switch version.Compare(a.ID.Version, b.ID.Version) {
	case version.Greater:
		r.demote(bSite, b, aSite, a)
	case version.Less:
		r.demote(aSite, a, bSite, b)
	case version.Equal:
	default:
		r.stats.Ambiguous++
		r.logger.Debug().
			Err(errors.ErrAmbiguousVersion).
			Str("feature", a.ID.Name).
			Str("version", a.ID.Version).
			Str("other_version", b.ID.Version).
			Str("site", aSite.Location()).
			Str("other_site", bSite.Location()).
			Msg("Leaving both versions configured")
	}
}

func (r *duplicateResolver) demote(loserSite *sites.ConfiguredSite, loser *sites.FeatureReference, winnerSite *sites.ConfiguredSite, winner *sites.FeatureReference) {
	if !loserSite.Policy.IsConfigured(loser) {
		return
	}
	loserSite.Policy.AddUnconfigured(loser)
	r.stats.Demotions = append(r.stats.Demotions, Demotion{
		Site:       loserSite.Location(),
		Feature:    loser.ID,
		WinnerSite: winnerSite.Location(),
		Winner:     winner.ID,
	})
	r.logger.Info().
		Str("site", loserSite.Location()).
		Str("feature", loser.ID.String()).
		Str("winner", winner.ID.String()).
		Str("winner_site", winnerSite.Location()).
		Msg("Unconfigured older duplicate feature")
}
