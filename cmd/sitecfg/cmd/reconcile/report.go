package reconcile

import (
	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/reconciler"
)

// Report is the machine-readable form of a reconciliation result.
type Report struct {
	ConfigurationID string                      `json:"configuration_id" yaml:"configuration_id"`
	Digest          string                      `json:"digest" yaml:"digest"`
	DryRun          bool                        `json:"dry_run" yaml:"dry_run"`
	Persisted       bool                        `json:"persisted" yaml:"persisted"`
	Store           string                      `json:"store" yaml:"store"`
	Summary         differ.ChangesetSummary     `json:"summary" yaml:"summary"`
	Changes         []Change                    `json:"changes,omitempty" yaml:"changes,omitempty"`
	Demotions       []Demotion                  `json:"demotions,omitempty" yaml:"demotions,omitempty"`
	Stats           reconciler.ResultStatistics `json:"stats" yaml:"stats"`
	Warnings        []string                    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Change is one site or feature change.
type Change struct {
	Site    string `json:"site" yaml:"site"`
	Feature string `json:"feature,omitempty" yaml:"feature,omitempty"`
	Type    string `json:"type" yaml:"type"`
}

// Demotion is a duplicate feature version that was unconfigured.
type Demotion struct {
	Site       string `json:"site" yaml:"site"`
	Feature    string `json:"feature" yaml:"feature"`
	WinnerSite string `json:"winner_site" yaml:"winner_site"`
	Winner     string `json:"winner" yaml:"winner"`
}

// NewReport converts a result into a Report.
func NewReport(result *reconciler.Result) Report {
	r := Report{
		DryRun:    result.Metadata.DryRun,
		Persisted: result.Metadata.Persisted,
		Store:     result.Metadata.Store,
		Digest:    result.Digest.String(),
		Stats:     result.Metadata.Stats,
		Warnings:  result.Warnings,
	}
	if result.Configuration != nil {
		r.ConfigurationID = result.Configuration.ID
	}
	if cs := result.Changeset; cs != nil {
		r.Summary = cs.Summary
		if cs.Sites != nil {
			for _, s := range cs.Sites.Added {
				r.Changes = append(r.Changes, Change{Site: s.Location, Type: string(differ.ChangeTypeAdd)})
			}
			for _, u := range cs.Sites.Updated {
				if len(u.Changes) > 0 {
					r.Changes = append(r.Changes, Change{Site: u.Location, Type: string(differ.ChangeTypeUpdate)})
				}
				for _, group := range [][]differ.FeatureChange{
					u.Features.Added, u.Features.Removed, u.Features.Activated, u.Features.Deactivated,
				} {
					for _, c := range group {
						r.Changes = append(r.Changes, Change{Site: c.Site, Feature: c.Feature.String(), Type: string(c.Type)})
					}
				}
			}
			for _, s := range cs.Sites.Removed {
				r.Changes = append(r.Changes, Change{Site: s.Location, Type: string(differ.ChangeTypeRemove)})
			}
		}
	}
	for _, d := range result.Demotions {
		r.Demotions = append(r.Demotions, Demotion{
			Site:       d.Site,
			Feature:    d.Feature.String(),
			WinnerSite: d.WinnerSite,
			Winner:     d.Winner.String(),
		})
	}
	return r
}
