package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Result represents the outcome of a reconciliation operation.
type Result struct {
	// Core data
	Configuration *sites.Configuration
	Previous      *sites.Configuration // nil when nothing was stored
	Changeset     *differ.Changeset
	Digest        sites.Digest

	// Duplicate resolution
	Demotions []Demotion

	// Metadata
	Metadata ResultMetadata

	// Issues
	Warnings []string
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Store is the location of the configuration store
	Store string

	// DryRun indicates if this was a dry-run
	DryRun bool

	// Persisted indicates the configuration was saved
	Persisted bool

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	SitesDiscovered      int
	SitesMatched         int
	SitesCreated         int
	SitesDropped         int
	SitesSkipped         int
	FeaturesConfigured   int
	FeaturesUnconfigured int
	FeaturesBroken       int
	Comparisons          int
	AmbiguousComparisons int
	TotalTimeMs          int64
}

// HasChanges returns true if any changes were detected.
func (r *Result) HasChanges() bool {
	return r.Changeset != nil && r.Changeset.HasChanges()
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if r.Metadata.DryRun {
		if r.HasChanges() {
			return fmt.Sprintf("Dry run completed. %s", r.Changeset.String())
		}
		return "Dry run completed. No changes detected."
	}

	if r.HasChanges() {
		return fmt.Sprintf("Reconciliation successful. %s", r.Changeset.String())
	}

	return "Reconciliation completed. No changes detected."
}

// NewResult creates a new result with defaults.
func NewResult() *Result {
	return &Result{
		Warnings: []string{},
		Metadata: ResultMetadata{
			StartTime: time.Now(),
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
}
