// Package version provides the total order used to pick between releases of
// the same feature.
//
// Versions are parsed leniently with Masterminds/semver ("1", "1.2", "v1.2.3",
// "1.2.3-rc.1"). Anything after three numeric segments and a dot is a
// qualifier ("2.0.1.v20020604") and breaks ties between otherwise equal versions by
// plain string comparison, with the unqualified version ordering first.
//
// Anything that cannot be parsed has no relationship to anything else:
// Compare reports Incomparable and callers leave both candidates alone.
package version

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/agentstation/sitecfg/pkg/errors"
)

// Relation is the outcome of comparing two versions.
type Relation int

const (
	// Incomparable means no order is defined (missing or malformed input).
	Incomparable Relation = iota
	// Less means the first version orders before the second.
	Less
	// Equal means both versions denote the same release.
	Equal
	// Greater means the first version orders after the second.
	Greater
)

// String returns the string representation of a relation.
func (r Relation) String() string {
	switch r {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// qualified matches three numeric segments followed by a qualifier. Dots
// inside a semver prerelease ("1.0.0-rc.10") never start a qualifier.
var qualified = regexp.MustCompile(`^(v?\d+\.\d+\.\d+)\.(.+)$`)

// Version is a parsed feature version.
type Version struct {
	raw       string
	base      *semver.Version
	qualifier string
}

// Parse parses a version identifier.
func Parse(s string) (*Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errors.NewValidationError("version", s, "empty version")
	}

	base, qualifier := raw, ""
	if m := qualified.FindStringSubmatch(raw); m != nil {
		base, qualifier = m[1], m[2]
	}

	v, err := semver.NewVersion(base)
	if err != nil {
		return nil, errors.WrapValidation("version", err)
	}
	return &Version{raw: raw, base: v, qualifier: qualifier}, nil
}

// String returns the version as it was written.
func (v *Version) String() string {
	if v == nil {
		return ""
	}
	return v.raw
}

// Qualifier returns the fourth segment, if any.
func (v *Version) Qualifier() string {
	if v == nil {
		return ""
	}
	return v.qualifier
}

// Compare orders v against other. A nil operand yields Incomparable.
func (v *Version) Compare(other *Version) Relation {
	if v == nil || other == nil {
		return Incomparable
	}
	if c := v.base.Compare(other.base); c != 0 {
		return fromInt(c)
	}
	return fromInt(strings.Compare(v.qualifier, other.qualifier))
}

// Compare parses and orders two version strings. Unparseable input on
// either side yields Incomparable.
func Compare(a, b string) Relation {
	va, err := Parse(a)
	if err != nil {
		return Incomparable
	}
	vb, err := Parse(b)
	if err != nil {
		return Incomparable
	}
	return va.Compare(vb)
}

func fromInt(c int) Relation {
	switch {
	case c < 0:
		return Less
	case c > 0:
		return Greater
	default:
		return Equal
	}
}
