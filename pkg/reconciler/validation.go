package reconciler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/sitecfg/pkg/sites"
)

// ValidationResult represents the result of validating a configuration.
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// ValidationIssue is one problem found in a configuration.
type ValidationIssue struct {
	Site    string
	Feature string
	Message string
}

// String returns a string representation of the issue.
func (i ValidationIssue) String() string {
	switch {
	case i.Site != "" && i.Feature != "":
		return fmt.Sprintf("%s at %s: %s", i.Feature, i.Site, i.Message)
	case i.Feature != "":
		return fmt.Sprintf("%s: %s", i.Feature, i.Message)
	case i.Site != "":
		return fmt.Sprintf("%s: %s", i.Site, i.Message)
	default:
		return i.Message
	}
}

// IsValid returns true if validation found no errors.
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// HasWarnings returns true if there are warnings.
func (v *ValidationResult) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// String returns a string representation of the validation result.
func (v *ValidationResult) String() string {
	if v.IsValid() {
		if v.HasWarnings() {
			return fmt.Sprintf("Validation passed with %d warnings", len(v.Warnings))
		}
		return "Validation passed"
	}
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.String()
	}
	return fmt.Sprintf("Validation failed with %d errors: %s", len(v.Errors), strings.Join(msgs, "; "))
}

func (v *ValidationResult) errorf(site, feature, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationIssue{Site: site, Feature: feature, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the structural invariants of a reconciled configuration.
// Errors are violations no reconciliation should produce: sites without a
// location or policy, repeated locations, and policy entries naming features
// the site does not hold. A feature left configured in more than one version
// is a warning, since versions without a common order are kept side by side.
func Validate(cfg *sites.Configuration) *ValidationResult {
	v := &ValidationResult{}
	if cfg == nil {
		return v
	}

	locations := make(map[string]bool, len(cfg.Sites))
	versions := make(map[string]map[string]bool)

	for i, cs := range cfg.Sites {
		location := cs.Location()
		switch {
		case cs == nil || cs.Site == nil:
			v.errorf("", "", "site %d has no discovered state", i)
			continue
		case location == "":
			v.errorf("", "", "site %d has no location", i)
		case locations[location]:
			v.errorf(location, "", "location appears more than once")
		}
		locations[location] = true

		if cs.Policy == nil {
			v.errorf(location, "", "site has no policy")
			continue
		}

		for _, ref := range cs.Policy.References() {
			if cs.Site.Feature(ref.Key()) == nil {
				v.errorf(location, ref.ID.String(), "policy entry has no matching feature at the site")
			}
		}
		for _, ref := range cs.Policy.Configured() {
			if versions[ref.ID.Name] == nil {
				versions[ref.ID.Name] = make(map[string]bool)
			}
			versions[ref.ID.Name][ref.ID.Version] = true
		}
	}

	names := make([]string, 0, len(versions))
	for name, vs := range versions {
		if len(vs) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		vs := make([]string, 0, len(versions[name]))
		for ver := range versions[name] {
			vs = append(vs, ver)
		}
		sort.Strings(vs)
		v.Warnings = append(v.Warnings, ValidationIssue{
			Feature: name,
			Message: fmt.Sprintf("configured in %d versions (%s)", len(vs), strings.Join(vs, ", ")),
		})
	}
	return v
}
