package snapshot

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/agentstation/sitecfg/pkg/errors"
)

const platformBase = "platform:/base/"

// Resolve turns a declared site URL into a directory. platform:/base/ URLs
// resolve against installBase, file: URLs to their path, and bare paths
// relative to relativeTo.
func Resolve(raw, installBase, relativeTo string) (string, error) {
	switch {
	case strings.HasPrefix(raw, platformBase) || raw == strings.TrimSuffix(platformBase, "/"):
		if installBase == "" {
			return "", errors.NewValidationError("install_base", raw, "required to resolve platform:/base/ URLs")
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(raw, platformBase), strings.TrimSuffix(platformBase, "/"))
		return clean(filepath.Join(installBase, filepath.FromSlash(rest))), nil

	case strings.HasPrefix(raw, "file:"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", errors.WrapValidation("url", err)
		}
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		if p == "" {
			return "", errors.NewValidationError("url", raw, "file URL has no path")
		}
		if !filepath.IsAbs(filepath.FromSlash(p)) {
			p = filepath.Join(relativeTo, filepath.FromSlash(p))
		}
		return clean(filepath.FromSlash(p)), nil

	case strings.Contains(raw, "://"):
		return "", errors.NewValidationError("url", raw, "only platform:/base/ and file: sites are supported")

	default:
		p := filepath.FromSlash(raw)
		if !filepath.IsAbs(p) {
			p = filepath.Join(relativeTo, p)
		}
		return clean(p), nil
	}
}

// Location returns the canonical file URL used to match sites across runs.
func Location(dir string) string {
	slashed := filepath.ToSlash(dir)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	if !strings.HasSuffix(slashed, "/") {
		slashed += "/"
	}
	return "file://" + slashed
}

func clean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
