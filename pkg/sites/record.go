package sites

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/sitecfg/pkg/errors"
)

// ConfigurationRecord is the flat, serializable form of a Configuration.
// Stores and output formatters work with records; the reconciler works
// with the object model.
type ConfigurationRecord struct {
	ID         string           `json:"id" yaml:"id"`
	CreatedAt  utc.Time         `json:"created_at" yaml:"created_at"`
	Sites      []SiteRecord     `json:"sites" yaml:"sites"`
	Activities []ActivityRecord `json:"activities,omitempty" yaml:"activities,omitempty"`
}

// SiteRecord is the serializable form of a ConfiguredSite.
type SiteRecord struct {
	Location           string          `json:"location" yaml:"location"`
	PlatformURL        string          `json:"platform_url,omitempty" yaml:"platform_url,omitempty"`
	Updatable          bool            `json:"updatable" yaml:"updatable"`
	Policy             PolicyMode      `json:"policy" yaml:"policy"`
	PreviousPluginPath []string        `json:"previous_plugin_path,omitempty" yaml:"previous_plugin_path,omitempty"`
	Features           []FeatureRecord `json:"features,omitempty" yaml:"features,omitempty"`
}

// FeatureRecord is one feature of a site and its activation state.
type FeatureRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Version    string   `json:"version" yaml:"version"`
	URL        string   `json:"url,omitempty" yaml:"url,omitempty"`
	Configured bool     `json:"configured" yaml:"configured"`
	Broken     bool     `json:"broken,omitempty" yaml:"broken,omitempty"`
	Plugins    []string `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// ActivityRecord is the serializable form of an Activity.
type ActivityRecord struct {
	Action string   `json:"action" yaml:"action"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Status string   `json:"status,omitempty" yaml:"status,omitempty"`
	Date   utc.Time `json:"date" yaml:"date"`
}

// Record flattens the configuration for storage or output.
func (c *Configuration) Record() ConfigurationRecord {
	rec := ConfigurationRecord{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Sites:     make([]SiteRecord, 0, len(c.Sites)),
	}
	for _, cs := range c.Sites {
		rec.Sites = append(rec.Sites, cs.Record())
	}
	for _, a := range c.Activities {
		rec.Activities = append(rec.Activities, ActivityRecord(a))
	}
	return rec
}

// Record flattens one configured site. Features are listed in policy order.
func (cs *ConfiguredSite) Record() SiteRecord {
	rec := SiteRecord{
		Location:           cs.Location(),
		PlatformURL:        cs.PlatformURL,
		Updatable:          cs.Updatable,
		PreviousPluginPath: cs.PreviousPluginPath,
	}
	if cs.Policy != nil {
		rec.Policy = cs.Policy.Mode
	}
	for _, ref := range cs.Policy.References() {
		rec.Features = append(rec.Features, FeatureRecord{
			Name:       ref.ID.Name,
			Version:    ref.ID.Version,
			URL:        ref.URL,
			Configured: cs.Policy.IsConfigured(ref),
			Broken:     ref.Broken,
			Plugins:    ref.Plugins,
		})
	}
	return rec
}

// Configuration rebuilds the object model from a record. The site's feature
// set is the set of features in its policy.
func (rec ConfigurationRecord) Configuration() (*Configuration, error) {
	cfg := &Configuration{ID: rec.ID, CreatedAt: rec.CreatedAt}
	for i, sr := range rec.Sites {
		if sr.Location == "" {
			return nil, errors.NewValidationError("sites.location", i, "site location is required")
		}
		mode, err := ParsePolicyMode(string(sr.Policy))
		if err != nil {
			return nil, err
		}

		site := NewSite(sr.Location)
		policy := NewPolicy(mode)
		for _, fr := range sr.Features {
			ref := &FeatureReference{
				ID:      FeatureIdentity{Name: fr.Name, Version: fr.Version},
				URL:     fr.URL,
				Broken:  fr.Broken,
				Plugins: fr.Plugins,
			}
			site.Features = append(site.Features, ref)
			if fr.Configured {
				policy.AddConfigured(ref)
			} else {
				policy.AddUnconfigured(ref)
			}
		}

		cfg.AddSite(&ConfiguredSite{
			Site:               site,
			Policy:             policy,
			PlatformURL:        sr.PlatformURL,
			Updatable:          sr.Updatable,
			PreviousPluginPath: sr.PreviousPluginPath,
		})
	}
	for _, ar := range rec.Activities {
		cfg.AddActivity(Activity(ar))
	}
	return cfg, nil
}
