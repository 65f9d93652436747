package snapshot

import (
	"context"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// Static returns a fixed list of entries. It is used when the platform is
// described in memory rather than on disk.
type Static struct {
	entries []sites.SiteEntry
}

// NewStatic returns a provider reporting entries.
func NewStatic(entries ...sites.SiteEntry) *Static {
	return &Static{entries: entries}
}

// DiscoverSites returns a copy of the configured entries.
func (s *Static) DiscoverSites(ctx context.Context) ([]sites.SiteEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]sites.SiteEntry(nil), s.entries...), nil
}
