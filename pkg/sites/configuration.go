// Package sites holds the data model shared by discovery, reconciliation and
// storage: sites, the features found at them, per-site activation policies
// and the configurations that group them.
package sites

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// ConfiguredSite pairs a discovered Site with its activation policy.
// A reconciliation pass never modifies a ConfiguredSite from a previous
// pass; it always builds a new one.
type ConfiguredSite struct {
	Site   *Site
	Policy *Policy

	// PlatformURL is the site URL as the platform declared it, before resolution.
	PlatformURL string
	Updatable   bool

	// PreviousPluginPath is the plugin path the platform reported for the site.
	PreviousPluginPath []string
}

// Location returns the resolved site location.
func (cs *ConfiguredSite) Location() string {
	if cs == nil || cs.Site == nil {
		return ""
	}
	return cs.Site.Location
}

// ConfiguredCount returns the number of configured features.
func (cs *ConfiguredSite) ConfiguredCount() int {
	if cs == nil {
		return 0
	}
	return len(cs.Policy.Configured())
}

// ActivityReconciliation is the action recorded for a reconciliation pass.
const ActivityReconciliation = "reconciliation"

// Activity status values.
const (
	ActivityStatusOK      = "ok"
	ActivityStatusDryRun  = "dry-run"
	ActivityStatusUnknown = "unknown"
)

// Activity records an operation that produced a configuration.
type Activity struct {
	Action string
	Label  string
	Status string
	Date   utc.Time
}

// Configuration is one full reconciled state: an ordered list of configured
// sites. Site order is the discovery order of the snapshot it was built from.
type Configuration struct {
	ID         string
	CreatedAt  utc.Time
	Sites      []*ConfiguredSite
	Activities []Activity
}

// NewConfiguration creates an empty configuration with a fresh ID.
func NewConfiguration() *Configuration {
	return &Configuration{
		ID:        uuid.NewString(),
		CreatedAt: utc.Now(),
	}
}

// AddSite appends cs to the configuration.
func (c *Configuration) AddSite(cs *ConfiguredSite) {
	c.Sites = append(c.Sites, cs)
}

// Site returns the configured site at location, or nil.
func (c *Configuration) Site(location string) *ConfiguredSite {
	if c == nil {
		return nil
	}
	for _, cs := range c.Sites {
		if cs.Location() == location {
			return cs
		}
	}
	return nil
}

// AddActivity appends an activity record.
func (c *Configuration) AddActivity(a Activity) {
	c.Activities = append(c.Activities, a)
}

// FeatureCount returns the total number of features across all sites.
func (c *Configuration) FeatureCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, cs := range c.Sites {
		n += cs.Policy.Len()
	}
	return n
}

// ConfiguredCount returns the number of configured features across all sites.
func (c *Configuration) ConfiguredCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, cs := range c.Sites {
		n += cs.ConfiguredCount()
	}
	return n
}

// SiteEntry is one site as reported by a platform snapshot: where it is,
// how the platform declares it, and what discovery found there.
type SiteEntry struct {
	PlatformURL string
	Location    string // resolved location, used to match old and new sites
	Updatable   bool
	Policy      PolicyMode
	PluginPath  []string
	Site        *Site
}
