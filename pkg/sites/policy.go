package sites

import (
	"github.com/agentstation/sitecfg/pkg/errors"
)

// PolicyMode is the site-level activation rule.
type PolicyMode string

const (
	// PolicyUserInclude activates only what the user listed; newly found
	// features start unconfigured.
	PolicyUserInclude PolicyMode = "user-include"
	// PolicyUserExclude activates everything except what the user listed.
	PolicyUserExclude PolicyMode = "user-exclude"
	// PolicyManagedOnly leaves activation to a managing installer.
	PolicyManagedOnly PolicyMode = "managed-only"
)

// DefaultPolicyMode is used when a site does not declare one.
const DefaultPolicyMode = PolicyUserExclude

// String returns the string representation of a policy mode.
func (m PolicyMode) String() string {
	return string(m)
}

// ExcludeByDefault reports whether newly discovered features start unconfigured.
func (m PolicyMode) ExcludeByDefault() bool {
	return m == PolicyUserInclude
}

// ParsePolicyMode validates s. An empty string yields DefaultPolicyMode.
func ParsePolicyMode(s string) (PolicyMode, error) {
	switch PolicyMode(s) {
	case "":
		return DefaultPolicyMode, nil
	case PolicyUserInclude, PolicyUserExclude, PolicyManagedOnly:
		return PolicyMode(s), nil
	default:
		return "", errors.NewValidationError("policy", s, "must be one of user-include, user-exclude, managed-only")
	}
}

type policyEntry struct {
	ref        *FeatureReference
	configured bool
}

// Policy records which features of one site are configured (active) and
// which are unconfigured. Entries are keyed by FeatureReference.Key, so the
// same name@version installed at two URLs is tracked twice. A reference is in
// at most one of the two sets; adding it to one removes it from the other.
// Iteration follows the order references were first added.
type Policy struct {
	Mode PolicyMode

	entries []policyEntry
	index   map[string]int
}

// NewPolicy creates an empty policy with the given mode.
func NewPolicy(mode PolicyMode) *Policy {
	if mode == "" {
		mode = DefaultPolicyMode
	}
	return &Policy{Mode: mode, index: make(map[string]int)}
}

// AddConfigured marks ref as configured.
func (p *Policy) AddConfigured(ref *FeatureReference) {
	p.set(ref, true)
}

// AddUnconfigured marks ref as unconfigured.
func (p *Policy) AddUnconfigured(ref *FeatureReference) {
	p.set(ref, false)
}

func (p *Policy) set(ref *FeatureReference, configured bool) {
	if ref == nil {
		return
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	key := ref.Key()
	if i, ok := p.index[key]; ok {
		p.entries[i] = policyEntry{ref: ref, configured: configured}
		return
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, policyEntry{ref: ref, configured: configured})
}

// Remove drops ref from both sets.
func (p *Policy) Remove(ref *FeatureReference) {
	i, ok := p.lookup(ref)
	if !ok {
		return
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	delete(p.index, ref.Key())
	for j := i; j < len(p.entries); j++ {
		p.index[p.entries[j].ref.Key()] = j
	}
}

// Contains reports whether ref is in either set.
func (p *Policy) Contains(ref *FeatureReference) bool {
	_, ok := p.lookup(ref)
	return ok
}

// IsConfigured reports whether ref is in the configured set.
func (p *Policy) IsConfigured(ref *FeatureReference) bool {
	i, ok := p.lookup(ref)
	return ok && p.entries[i].configured
}

func (p *Policy) lookup(ref *FeatureReference) (int, bool) {
	if p == nil || ref == nil {
		return 0, false
	}
	i, ok := p.index[ref.Key()]
	return i, ok
}

// Configured returns the configured references.
func (p *Policy) Configured() []*FeatureReference {
	return p.filter(true)
}

// Unconfigured returns the unconfigured references.
func (p *Policy) Unconfigured() []*FeatureReference {
	return p.filter(false)
}

// References returns every reference in the policy.
func (p *Policy) References() []*FeatureReference {
	if p == nil {
		return nil
	}
	refs := make([]*FeatureReference, 0, len(p.entries))
	for _, e := range p.entries {
		refs = append(refs, e.ref)
	}
	return refs
}

// Len returns the number of features in the policy.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

func (p *Policy) filter(configured bool) []*FeatureReference {
	if p == nil {
		return nil
	}
	var refs []*FeatureReference
	for _, e := range p.entries {
		if e.configured == configured {
			refs = append(refs, e.ref)
		}
	}
	return refs
}

// Clone returns a copy that shares the immutable references but not the ledger.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := NewPolicy(p.Mode)
	for _, e := range p.entries {
		c.set(e.ref, e.configured)
	}
	return c
}
