package sitecfg

import (
	"context"
	"sync"

	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for configuration events
type (
	// ReconciledHook is called after a new configuration is saved
	ReconciledHook func(cfg *sites.Configuration, changes *differ.Changeset)

	// SiteHook is called when a site is added to or removed from the configuration
	SiteHook func(site sites.SiteRecord)

	// FeatureHook is called when a feature becomes configured or unconfigured
	FeatureHook func(change differ.FeatureChange)
)

// Hooks registers callbacks run after each saved reconciliation. Dry runs
// do not trigger hooks.
type Hooks interface {
	// OnReconciled registers a callback for every saved configuration
	OnReconciled(fn ReconciledHook)

	// OnSiteAdded registers a callback for sites seen for the first time
	OnSiteAdded(fn SiteHook)

	// OnSiteRemoved registers a callback for sites no longer present
	OnSiteRemoved(fn SiteHook)

	// OnFeatureActivated registers a callback for features that became configured,
	// including newly installed features that start configured
	OnFeatureActivated(fn FeatureHook)

	// OnFeatureDeactivated registers a callback for features that became unconfigured
	OnFeatureDeactivated(fn FeatureHook)
}

// hooks manages event callbacks for configuration changes
type hooks struct {
	mu                   sync.RWMutex
	onReconciled         []ReconciledHook
	onSiteAdded          []SiteHook
	onSiteRemoved        []SiteHook
	onFeatureActivated   []FeatureHook
	onFeatureDeactivated []FeatureHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnReconciled registers a callback for every saved configuration.
func (c *client) OnReconciled(fn ReconciledHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onReconciled = append(c.hooks.onReconciled, fn)
}

// OnSiteAdded registers a callback for sites seen for the first time.
func (c *client) OnSiteAdded(fn SiteHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSiteAdded = append(c.hooks.onSiteAdded, fn)
}

// OnSiteRemoved registers a callback for sites no longer present.
func (c *client) OnSiteRemoved(fn SiteHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSiteRemoved = append(c.hooks.onSiteRemoved, fn)
}

// OnFeatureActivated registers a callback for features that became configured.
func (c *client) OnFeatureActivated(fn FeatureHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onFeatureActivated = append(c.hooks.onFeatureActivated, fn)
}

// OnFeatureDeactivated registers a callback for features that became unconfigured.
func (c *client) OnFeatureDeactivated(fn FeatureHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onFeatureDeactivated = append(c.hooks.onFeatureDeactivated, fn)
}

// trigger fans a saved changeset out to the registered hooks. A panicking
// hook is logged and does not stop the others.
func (h *hooks) trigger(ctx context.Context, cfg *sites.Configuration, changes *differ.Changeset) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	logger := logging.FromContext(ctx)
	call := func(name string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Str("hook", name).Msg("Hook panicked")
			}
		}()
		fn()
	}

	for _, hook := range h.onReconciled {
		call("reconciled", func() { hook(cfg, changes) })
	}
	if changes == nil || changes.Sites == nil {
		return
	}

	for _, site := range changes.Sites.Added {
		for _, hook := range h.onSiteAdded {
			call("site_added", func() { hook(site) })
		}
		for _, f := range site.Features {
			if !f.Configured {
				continue
			}
			change := differ.FeatureChange{
				Site:       site.Location,
				Feature:    sites.FeatureIdentity{Name: f.Name, Version: f.Version},
				Type:       differ.ChangeTypeAdd,
				Configured: true,
			}
			for _, hook := range h.onFeatureActivated {
				call("feature_activated", func() { hook(change) })
			}
		}
	}

	for _, update := range changes.Sites.Updated {
		for _, change := range update.Features.Added {
			if !change.Configured {
				continue
			}
			for _, hook := range h.onFeatureActivated {
				call("feature_activated", func() { hook(change) })
			}
		}
		for _, change := range update.Features.Activated {
			for _, hook := range h.onFeatureActivated {
				call("feature_activated", func() { hook(change) })
			}
		}
		for _, change := range update.Features.Deactivated {
			for _, hook := range h.onFeatureDeactivated {
				call("feature_deactivated", func() { hook(change) })
			}
		}
	}

	for _, site := range changes.Sites.Removed {
		for _, hook := range h.onSiteRemoved {
			call("site_removed", func() { hook(site) })
		}
	}
}
