package reconciler

import (
	"github.com/agentstation/sitecfg/pkg/sites"
)

// ReconcileSite merges an old configured site with the entry discovered at
// the same location and returns a new configured site. old is not modified.
//
// Attributes the user controls (updatable, platform URL, policy mode) come
// from old. Features found in both keep their old activation state. Features
// seen for the first time are configured unless the policy mode excludes by
// default. Features only old knows about are dropped.
func ReconcileSite(old *sites.ConfiguredSite, entry sites.SiteEntry) *sites.ConfiguredSite {
	if old == nil {
		return NewConfiguredSite(entry)
	}
	discovered := siteOf(entry)

	mode := entry.Policy
	if old.Policy != nil {
		mode = old.Policy.Mode
	}

	reconciled := &sites.ConfiguredSite{
		Site:               discovered,
		Policy:             sites.NewPolicy(mode),
		PlatformURL:        old.PlatformURL,
		Updatable:          old.Updatable,
		PreviousPluginPath: entry.PluginPath,
	}

	for _, ref := range discovered.Features {
		previous := carriedOver(old, ref)
		switch {
		case previous != nil && old.Policy.IsConfigured(previous):
			reconciled.Policy.AddConfigured(ref)
		case previous != nil:
			reconciled.Policy.AddUnconfigured(ref)
		case reconciled.Policy.Mode.ExcludeByDefault():
			reconciled.Policy.AddUnconfigured(ref)
		default:
			reconciled.Policy.AddConfigured(ref)
		}
	}

	return reconciled
}

// NewConfiguredSite builds a configured site for a location seen for the
// first time. Every discovered feature is configured.
func NewConfiguredSite(entry sites.SiteEntry) *sites.ConfiguredSite {
	discovered := siteOf(entry)

	cs := &sites.ConfiguredSite{
		Site:               discovered,
		Policy:             sites.NewPolicy(entry.Policy),
		PlatformURL:        entry.PlatformURL,
		Updatable:          entry.Updatable,
		PreviousPluginPath: entry.PluginPath,
	}
	for _, ref := range discovered.Features {
		cs.Policy.AddConfigured(ref)
	}
	return cs
}

// carriedOver finds the old reference for ref, or nil if ref is a new
// discovery. A reference is only carried over if the old policy tracked it.
func carriedOver(old *sites.ConfiguredSite, ref *sites.FeatureReference) *sites.FeatureReference {
	previous := old.Site.Feature(ref.Key())
	if previous == nil || !old.Policy.Contains(previous) {
		return nil
	}
	return previous
}

// siteOf returns the entry's site located at the entry's resolved location.
func siteOf(entry sites.SiteEntry) *sites.Site {
	if entry.Site == nil {
		return sites.NewSite(entry.Location)
	}
	if entry.Location == "" || entry.Site.Location == entry.Location {
		return entry.Site
	}
	return sites.NewSite(entry.Location, entry.Site.Features...)
}
