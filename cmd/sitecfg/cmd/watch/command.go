// Package watch implements the watch command.
package watch

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg/internal/cmd/application"
	"github.com/agentstation/sitecfg/pkg/differ"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// NewCommand creates the watch command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Reconcile whenever the platform changes",
		Long: `Watch reconciles once, then watches the platform description and every
site's features and plugins directories. After changes settle it reconciles
again. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			client, err := app.Client()
			if err != nil {
				return err
			}

			client.OnSiteAdded(func(site sites.SiteRecord) {
				logger.Info().Str("site", site.Location).Int("features", len(site.Features)).Msg("Site added")
			})
			client.OnSiteRemoved(func(site sites.SiteRecord) {
				logger.Info().Str("site", site.Location).Msg("Site removed")
			})
			client.OnFeatureActivated(func(change differ.FeatureChange) {
				logger.Info().Str("site", change.Site).Str("feature", change.Feature.String()).Msg("Feature activated")
			})
			client.OnFeatureDeactivated(func(change differ.FeatureChange) {
				logger.Info().Str("site", change.Site).Str("feature", change.Feature.String()).Msg("Feature deactivated")
			})

			return client.Watch(ctx)
		},
	}
}
