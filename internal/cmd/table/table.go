// Package table converts configurations into rows for CLI tables.
package table

import (
	"strconv"
	"time"

	"github.com/agentstation/sitecfg/internal/cmd/emoji"
	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ConfigurationToTableData lists every feature of every site with its state.
func ConfigurationToTableData(cfg *sites.Configuration) Data {
	headers := []string{"Site", "Policy", "Feature", "Version", "Configured", "Broken"}
	var rows [][]string
	if cfg != nil {
		for _, cs := range cfg.Sites {
			mode := "-"
			if cs.Policy != nil {
				mode = string(cs.Policy.Mode)
			}
			if cs.Site == nil || len(cs.Site.Features) == 0 {
				rows = append(rows, []string{cs.Location(), mode, "-", "-", "-", "-"})
				continue
			}
			for _, f := range cs.Site.Features {
				broken := ""
				if f.Broken {
					broken = emoji.Broken
				}
				rows = append(rows, []string{
					cs.Location(),
					mode,
					f.ID.Name,
					f.ID.Version,
					emoji.Check(cs.Policy.IsConfigured(f)),
					broken,
				})
			}
		}
	}
	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignCenter, AlignCenter},
	}
}

// HistoryToTableData summarizes saved configurations, one row each.
func HistoryToTableData(cfgs []*sites.Configuration) Data {
	headers := []string{"ID", "Created", "Sites", "Features", "Configured", "Digest"}
	rows := make([][]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		digest := "-"
		if d, err := cfg.Digest(); err == nil {
			digest = d.Short()
		}
		rows = append(rows, []string{
			cfg.ID,
			cfg.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(len(cfg.Sites)),
			strconv.Itoa(cfg.FeatureCount()),
			strconv.Itoa(cfg.ConfiguredCount()),
			digest,
		})
	}
	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
}

// ChangesetToTableData flattens a changeset into one row per change.
func ChangesetToTableData(cs *differ.Changeset) Data {
	headers := []string{"Site", "Feature", "Change"}
	var rows [][]string
	if cs != nil && cs.Sites != nil {
		for _, s := range cs.Sites.Added {
			rows = append(rows, []string{s.Location, "", string(differ.ChangeTypeAdd)})
		}
		for _, u := range cs.Sites.Updated {
			for _, fc := range u.Changes {
				rows = append(rows, []string{u.Location, fc.Path, fc.OldValue + " → " + fc.NewValue})
			}
			for _, group := range [][]differ.FeatureChange{
				u.Features.Added, u.Features.Removed, u.Features.Activated, u.Features.Deactivated,
			} {
				for _, c := range group {
					rows = append(rows, []string{u.Location, c.Feature.String(), string(c.Type)})
				}
			}
		}
		for _, s := range cs.Sites.Removed {
			rows = append(rows, []string{s.Location, "", string(differ.ChangeTypeRemove)})
		}
	}
	return Data{Headers: headers, Rows: rows}
}
