// Package snapshot discovers the sites of a platform and the features
// installed at each of them.
//
// A platform is described by a YAML file listing its sites:
//
//	install_base: /opt/app
//	sites:
//	  - url: platform:/base/
//	    updatable: true
//	    policy: user-exclude
//	    plugins: [plugins/org.example.core_1.0.0/]
//	  - url: file:///opt/extensions/
//
// Each site directory holds features/<dir>/feature.yaml manifests and a
// plugins/ directory. A feature whose required plugins are not all present
// under plugins/ is reported as broken.
package snapshot

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Platform is the parsed platform description.
type Platform struct {
	InstallBase string         `yaml:"install_base,omitempty"`
	Sites       []PlatformSite `yaml:"sites"`
}

// PlatformSite is one site declared by the platform.
type PlatformSite struct {
	URL       string           `yaml:"url"`
	Updatable *bool            `yaml:"updatable,omitempty"` // defaults to true
	Policy    sites.PolicyMode `yaml:"policy,omitempty"`
	Plugins   []string         `yaml:"plugins,omitempty"` // plugin path reported for the site
}

// IsUpdatable reports the declared flag, defaulting to true.
func (s PlatformSite) IsUpdatable() bool {
	return s.Updatable == nil || *s.Updatable
}

// FeatureManifest is the content of a feature.yaml file.
type FeatureManifest struct {
	ID      string   `yaml:"id"`
	Version string   `yaml:"version"`
	Plugins []string `yaml:"plugins,omitempty"` // required plugin ids
}

// LoadPlatform reads and validates a platform description.
func LoadPlatform(path string) (*Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParsePlatform(data, path)
}

// ParsePlatform parses a platform description. name is used in errors.
func ParsePlatform(data []byte, name string) (*Platform, error) {
	var p Platform
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	for i, s := range p.Sites {
		if s.URL == "" {
			return nil, errors.NewValidationError("sites.url", i, "site url is required")
		}
		mode, err := sites.ParsePolicyMode(string(s.Policy))
		if err != nil {
			return nil, err
		}
		p.Sites[i].Policy = mode
	}
	return &p, nil
}

// LoadFeatureManifest reads a feature.yaml file.
func LoadFeatureManifest(path string) (*FeatureManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var m FeatureManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if m.ID == "" {
		return nil, errors.NewValidationError("id", path, "feature id is required")
	}
	return &m, nil
}
