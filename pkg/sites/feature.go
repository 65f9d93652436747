package sites

import (
	"fmt"
	"strings"
)

// FeatureIdentity names one release of a feature. Two features are the same
// feature when their names are equal; the version tells releases apart.
type FeatureIdentity struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// String returns "name@version", or just the name when no version is set.
func (id FeatureIdentity) String() string {
	if id.Version == "" {
		return id.Name
	}
	return id.Name + "@" + id.Version
}

// ParseFeatureIdentity parses the "name@version" form produced by String.
func ParseFeatureIdentity(s string) FeatureIdentity {
	name, ver, _ := strings.Cut(s, "@")
	return FeatureIdentity{Name: name, Version: ver}
}

// FeatureReference describes one installable unit discovered at a site.
// References are created by discovery and never modified afterwards.
type FeatureReference struct {
	ID  FeatureIdentity
	URL string // location of the feature inside its site

	// Broken is set when a plugin the feature requires is missing at the site.
	Broken bool

	// Plugins lists the plugin identifiers the feature requires.
	Plugins []string
}

// NewFeatureReference creates a reference for name@version located at url.
func NewFeatureReference(name, version, url string) *FeatureReference {
	return &FeatureReference{
		ID:  FeatureIdentity{Name: name, Version: version},
		URL: url,
	}
}

// Key identifies the reference across reconciliation passes. It is the URL
// when one is known and the identity string otherwise.
func (r *FeatureReference) Key() string {
	if r.URL != "" {
		return r.URL
	}
	return r.ID.String()
}

// String implements fmt.Stringer.
func (r *FeatureReference) String() string {
	if r.Broken {
		return fmt.Sprintf("%s (broken)", r.ID)
	}
	return r.ID.String()
}

// Site is a discovered installation location and the features found there.
// A Site is built fresh by every discovery and treated as immutable.
type Site struct {
	Location string
	Features []*FeatureReference
}

// NewSite creates a site at location holding features in discovery order.
func NewSite(location string, features ...*FeatureReference) *Site {
	return &Site{Location: location, Features: features}
}

// Feature returns the reference with the given key, or nil.
func (s *Site) Feature(key string) *FeatureReference {
	if s == nil {
		return nil
	}
	for _, f := range s.Features {
		if f.Key() == key {
			return f
		}
	}
	return nil
}

// FeatureByID returns the reference with the given identity, or nil.
func (s *Site) FeatureByID(id FeatureIdentity) *FeatureReference {
	if s == nil {
		return nil
	}
	for _, f := range s.Features {
		if f.ID == id {
			return f
		}
	}
	return nil
}
