// Package differ provides functionality for comparing configurations and detecting changes.
package differ

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
	// ChangeTypeActivate indicates a feature became configured.
	ChangeTypeActivate ChangeType = "activate"
	// ChangeTypeDeactivate indicates a feature became unconfigured.
	ChangeTypeDeactivate ChangeType = "deactivate"
)

// FieldChange represents a change to a specific site attribute.
type FieldChange struct {
	Path     string     // Field path (e.g., "policy")
	OldValue string     // Previous value (string representation)
	NewValue string     // New value (string representation)
	Type     ChangeType // Type of change
}

// FeatureChange is a change to one feature at one site.
type FeatureChange struct {
	Site       string
	Feature    sites.FeatureIdentity
	Type       ChangeType
	Configured bool // activation state after the change; false for removals
}

// FeatureChangeset groups feature changes by kind.
type FeatureChangeset struct {
	Added       []FeatureChange
	Removed     []FeatureChange
	Activated   []FeatureChange
	Deactivated []FeatureChange
}

// SiteUpdate represents an update to a site present in both configurations.
type SiteUpdate struct {
	Location string
	Changes  []FieldChange
	Features FeatureChangeset
}

// SiteChangeset represents changes to sites.
type SiteChangeset struct {
	Added   []sites.SiteRecord // New sites
	Updated []SiteUpdate       // Sites with attribute or feature changes
	Removed []sites.SiteRecord // Sites no longer present
}

// Changeset represents all changes between two configurations.
type Changeset struct {
	Sites   *SiteChangeset
	Summary ChangesetSummary
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	SitesAdded          int
	SitesUpdated        int
	SitesRemoved        int
	FeaturesAdded       int
	FeaturesRemoved     int
	FeaturesActivated   int
	FeaturesDeactivated int
	TotalChanges        int
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c != nil && c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return !c.HasChanges()
}

// HasChanges returns true if the site changeset contains any changes.
func (s *SiteChangeset) HasChanges() bool {
	return len(s.Added) > 0 || len(s.Updated) > 0 || len(s.Removed) > 0
}

// HasChanges returns true if the feature changeset contains any changes.
func (f *FeatureChangeset) HasChanges() bool {
	return len(f.Added) > 0 || len(f.Removed) > 0 || len(f.Activated) > 0 || len(f.Deactivated) > 0
}

// calculateSummary computes the summary for a changeset. Features of added
// and removed sites count towards the feature totals.
func calculateSummary(s *SiteChangeset) ChangesetSummary {
	summary := ChangesetSummary{
		SitesAdded:   len(s.Added),
		SitesUpdated: len(s.Updated),
		SitesRemoved: len(s.Removed),
	}
	for _, site := range s.Added {
		summary.FeaturesAdded += len(site.Features)
	}
	for _, site := range s.Removed {
		summary.FeaturesRemoved += len(site.Features)
	}
	for _, update := range s.Updated {
		summary.FeaturesAdded += len(update.Features.Added)
		summary.FeaturesRemoved += len(update.Features.Removed)
		summary.FeaturesActivated += len(update.Features.Activated)
		summary.FeaturesDeactivated += len(update.Features.Deactivated)
	}
	summary.TotalChanges = summary.SitesAdded + summary.SitesUpdated + summary.SitesRemoved +
		summary.FeaturesAdded + summary.FeaturesRemoved +
		summary.FeaturesActivated + summary.FeaturesDeactivated
	return summary
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string

	if c.Sites.HasChanges() {
		siteParts := []string{}
		if c.Summary.SitesAdded > 0 {
			siteParts = append(siteParts, fmt.Sprintf("%d added", c.Summary.SitesAdded))
		}
		if c.Summary.SitesUpdated > 0 {
			siteParts = append(siteParts, fmt.Sprintf("%d updated", c.Summary.SitesUpdated))
		}
		if c.Summary.SitesRemoved > 0 {
			siteParts = append(siteParts, fmt.Sprintf("%d removed", c.Summary.SitesRemoved))
		}
		parts = append(parts, fmt.Sprintf("Sites: %s", strings.Join(siteParts, ", ")))
	}

	featureParts := []string{}
	if c.Summary.FeaturesAdded > 0 {
		featureParts = append(featureParts, fmt.Sprintf("%d added", c.Summary.FeaturesAdded))
	}
	if c.Summary.FeaturesRemoved > 0 {
		featureParts = append(featureParts, fmt.Sprintf("%d removed", c.Summary.FeaturesRemoved))
	}
	if c.Summary.FeaturesActivated > 0 {
		featureParts = append(featureParts, fmt.Sprintf("%d activated", c.Summary.FeaturesActivated))
	}
	if c.Summary.FeaturesDeactivated > 0 {
		featureParts = append(featureParts, fmt.Sprintf("%d deactivated", c.Summary.FeaturesDeactivated))
	}
	if len(featureParts) > 0 {
		parts = append(parts, fmt.Sprintf("Features: %s", strings.Join(featureParts, ", ")))
	}

	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, "; "), c.Summary.TotalChanges)
}

// Print outputs a detailed, human-readable view of the changeset to stdout.
func (c *Changeset) Print() {
	_ = c.Fprint(os.Stdout)
}

// Fprint writes a detailed, human-readable view of the changeset to w.
func (c *Changeset) Fprint(w io.Writer) error {
	p := &printer{w: w}
	p.printf("%s\n", c.String())
	if c.IsEmpty() {
		return p.err
	}
	p.printf("%s\n", strings.Repeat("─", 80))
	c.Sites.fprint(p)
	return p.err
}

func (s *SiteChangeset) fprint(p *printer) {
	if len(s.Added) > 0 {
		p.printf("\n➕ Added Sites (%d):\n", len(s.Added))
		for _, site := range s.Added {
			p.printf("  • %s\n", site.Location)
			for _, f := range site.Features {
				p.printf("    + %s@%s%s\n", f.Name, f.Version, state(f.Configured))
			}
		}
	}

	if len(s.Updated) > 0 {
		p.printf("\n🔄 Updated Sites (%d):\n", len(s.Updated))
		for _, update := range s.Updated {
			p.printf("  • %s:\n", update.Location)
			for _, change := range update.Changes {
				p.printf("    - %s: %s → %s\n", change.Path, change.OldValue, change.NewValue)
			}
			for _, f := range update.Features.Added {
				p.printf("    + %s%s\n", f.Feature, state(f.Configured))
			}
			for _, f := range update.Features.Removed {
				p.printf("    - %s\n", f.Feature)
			}
			for _, f := range update.Features.Activated {
				p.printf("    ✓ %s activated\n", f.Feature)
			}
			for _, f := range update.Features.Deactivated {
				p.printf("    ✗ %s deactivated\n", f.Feature)
			}
		}
	}

	if len(s.Removed) > 0 {
		p.printf("\n⚠️  Removed Sites (%d):\n", len(s.Removed))
		for _, site := range s.Removed {
			p.printf("  • %s (%d features)\n", site.Location, len(site.Features))
		}
	}
}

func state(configured bool) string {
	if configured {
		return " [configured]"
	}
	return " [unconfigured]"
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
