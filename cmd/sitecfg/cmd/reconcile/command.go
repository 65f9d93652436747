// Package reconcile implements the reconcile command.
package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg"
	"github.com/agentstation/sitecfg/internal/cmd/application"
	"github.com/agentstation/sitecfg/internal/cmd/emoji"
	"github.com/agentstation/sitecfg/internal/cmd/output"
	"github.com/agentstation/sitecfg/internal/cmd/table"
	"github.com/agentstation/sitecfg/pkg/reconciler"
)

// NewCommand creates the reconcile command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Reconcile the stored configuration with the platform",
		Long: `Reconcile discovers the platform's sites and installed features and merges
them with the stored configuration:

• Features present before keep their activation state
• Newly installed features are activated unless the site's policy is user-include
• Features and sites that disappeared are dropped
• When a feature is configured in more than one version, only the newest stays configured

The result is saved as the new current configuration and added to history.`,
		Example: `  sitecfg reconcile                         # Reconcile and save
  sitecfg reconcile --dry-run               # Preview changes
  sitecfg reconcile -o json                 # Machine-readable report`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, cmd.OutOrStdout(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the new configuration without saving it")

	return cmd
}

// Execute runs one reconciliation and writes the report to w.
func Execute(ctx context.Context, app application.Application, w io.Writer, dryRun bool) error {
	client, err := app.Client()
	if err != nil {
		return err
	}

	result, err := client.Reconcile(ctx, sitecfg.WithDryRun(dryRun))
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	switch format {
	case output.FormatTable, output.FormatWide:
		return printResult(w, result, format == output.FormatWide)
	case output.FormatMarkdown:
		if _, err := fmt.Fprintf(w, "%s\n\n", result.Summary()); err != nil {
			return err
		}
		return output.NewFormatter(format).Format(w, table.ChangesetToTableData(result.Changeset))
	default:
		return output.NewFormatter(format).Format(w, NewReport(result))
	}
}

func printResult(w io.Writer, result *reconciler.Result, wide bool) error {
	if err := result.Changeset.Fprint(w); err != nil {
		return err
	}
	if wide && len(result.Demotions) > 0 {
		fmt.Fprintln(w, "Demoted duplicates:")
		for _, d := range result.Demotions {
			fmt.Fprintf(w, "  %s %s at %s (kept %s at %s)\n", emoji.Unconfigured, d.Feature, d.Site, d.Winner, d.WinnerSite)
		}
		fmt.Fprintln(w)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "%s %s\n", emoji.Warning, warning)
	}

	stats := result.Metadata.Stats
	fmt.Fprintf(w, "%s %s\n", emoji.Success, result.Summary())
	fmt.Fprintf(w, "  sites: %d (%d matched, %d new, %d dropped)  features: %d configured, %d unconfigured, %d broken\n",
		stats.SitesDiscovered-stats.SitesSkipped, stats.SitesMatched, stats.SitesCreated, stats.SitesDropped,
		stats.FeaturesConfigured, stats.FeaturesUnconfigured, stats.FeaturesBroken)
	if result.Metadata.Persisted {
		fmt.Fprintf(w, "  saved %s (%s) to %s\n", result.Configuration.ID, result.Digest.Short(), result.Metadata.Store)
	}
	return nil
}
