package differ

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// Differ handles change detection between configurations.
type Differ interface {
	// Sites compares two lists of configured sites and returns changes
	Sites(existing, updated []sites.SiteRecord) *SiteChangeset

	// Configurations compares two complete configurations.
	// A nil existing configuration is treated as empty.
	Configurations(existing, updated *sites.Configuration) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Configurations compares two complete configurations.
func (diff *differ) Configurations(existing, updated *sites.Configuration) *Changeset {
	var existingSites, updatedSites []sites.SiteRecord
	if existing != nil {
		existingSites = existing.Record().Sites
	}
	if updated != nil {
		updatedSites = updated.Record().Sites
	}

	siteChanges := diff.Sites(existingSites, updatedSites)
	return &Changeset{
		Sites:   siteChanges,
		Summary: calculateSummary(siteChanges),
	}
}

// Sites compares two lists of configured sites, matched by location.
func (diff *differ) Sites(existing, updated []sites.SiteRecord) *SiteChangeset {
	changeset := &SiteChangeset{
		Added:   []sites.SiteRecord{},
		Updated: []SiteUpdate{},
		Removed: []sites.SiteRecord{},
	}

	// Create maps for efficient lookup
	existingMap := make(map[string]sites.SiteRecord, len(existing))
	for _, site := range existing {
		existingMap[site.Location] = site
	}

	updatedMap := make(map[string]sites.SiteRecord, len(updated))
	for _, site := range updated {
		updatedMap[site.Location] = site
	}

	// Find added and updated sites
	for _, newSite := range updated {
		if existingSite, exists := existingMap[newSite.Location]; exists {
			if update := diff.site(existingSite, newSite); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, newSite)
		}
	}

	// Find removed sites
	for _, existingSite := range existing {
		if _, exists := updatedMap[existingSite.Location]; !exists {
			changeset.Removed = append(changeset.Removed, existingSite)
		}
	}

	// Sort for consistent output
	sortSiteChangeset(changeset)

	return changeset
}

// site compares one site across two configurations.
func (diff *differ) site(existing, updated sites.SiteRecord) *SiteUpdate {
	var changes []FieldChange

	if !diff.ignoreFields["updatable"] && existing.Updatable != updated.Updatable {
		changes = append(changes, fieldChange("updatable", fmt.Sprint(existing.Updatable), fmt.Sprint(updated.Updatable)))
	}
	if !diff.ignoreFields["policy"] && existing.Policy != updated.Policy {
		changes = append(changes, fieldChange("policy", existing.Policy.String(), updated.Policy.String()))
	}
	if !diff.ignoreFields["platform_url"] && existing.PlatformURL != updated.PlatformURL {
		changes = append(changes, fieldChange("platform_url", existing.PlatformURL, updated.PlatformURL))
	}
	if !diff.ignoreFields["previous_plugin_path"] &&
		strings.Join(existing.PreviousPluginPath, ",") != strings.Join(updated.PreviousPluginPath, ",") {
		changes = append(changes, fieldChange("previous_plugin_path",
			fmt.Sprintf("%d entries", len(existing.PreviousPluginPath)),
			fmt.Sprintf("%d entries", len(updated.PreviousPluginPath))))
	}

	features := diff.features(updated.Location, existing.Features, updated.Features)

	if len(changes) == 0 && !features.HasChanges() {
		return nil
	}

	return &SiteUpdate{
		Location: updated.Location,
		Changes:  changes,
		Features: features,
	}
}

// features compares the features of one site, matched by URL, or by
// identity when a record has no URL.
func (diff *differ) features(location string, existing, updated []sites.FeatureRecord) FeatureChangeset {
	var changeset FeatureChangeset

	existingMap := make(map[string]sites.FeatureRecord, len(existing))
	for _, f := range existing {
		existingMap[recordKey(f)] = f
	}
	updatedMap := make(map[string]sites.FeatureRecord, len(updated))
	for _, f := range updated {
		updatedMap[recordKey(f)] = f
	}

	for _, f := range updated {
		id := identity(f)
		old, exists := existingMap[recordKey(f)]
		change := FeatureChange{Site: location, Feature: id, Configured: f.Configured}
		switch {
		case !exists:
			change.Type = ChangeTypeAdd
			changeset.Added = append(changeset.Added, change)
		case !old.Configured && f.Configured:
			change.Type = ChangeTypeActivate
			changeset.Activated = append(changeset.Activated, change)
		case old.Configured && !f.Configured:
			change.Type = ChangeTypeDeactivate
			changeset.Deactivated = append(changeset.Deactivated, change)
		}
	}

	for _, f := range existing {
		if _, exists := updatedMap[recordKey(f)]; !exists {
			changeset.Removed = append(changeset.Removed, FeatureChange{Site: location, Feature: identity(f), Type: ChangeTypeRemove})
		}
	}

	sortFeatureChanges(changeset.Added)
	sortFeatureChanges(changeset.Removed)
	sortFeatureChanges(changeset.Activated)
	sortFeatureChanges(changeset.Deactivated)

	return changeset
}

func identity(f sites.FeatureRecord) sites.FeatureIdentity {
	return sites.FeatureIdentity{Name: f.Name, Version: f.Version}
}

// recordKey mirrors FeatureReference.Key.
func recordKey(f sites.FeatureRecord) string {
	if f.URL != "" {
		return f.URL
	}
	return identity(f).String()
}

func fieldChange(path, oldValue, newValue string) FieldChange {
	return FieldChange{
		Path:     path,
		OldValue: oldValue,
		NewValue: newValue,
		Type:     ChangeTypeUpdate,
	}
}

// sortSiteChangeset sorts all slices in the changeset.
func sortSiteChangeset(changeset *SiteChangeset) {
	sort.Slice(changeset.Added, func(i, j int) bool {
		return changeset.Added[i].Location < changeset.Added[j].Location
	})
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].Location < changeset.Updated[j].Location
	})
	sort.Slice(changeset.Removed, func(i, j int) bool {
		return changeset.Removed[i].Location < changeset.Removed[j].Location
	})
}

func sortFeatureChanges(changes []FeatureChange) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Feature.String() < changes[j].Feature.String()
	})
}
