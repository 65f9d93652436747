// Package show implements the show command.
package show

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg/internal/cmd/application"
	"github.com/agentstation/sitecfg/internal/cmd/output"
	"github.com/agentstation/sitecfg/internal/cmd/table"
)

// NewCommand creates the show command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		GroupID: "inspect",
		Short:   "Show the current configuration",
		Long: `Show prints every site of the current configuration with its features and
whether each one is configured.`,
		Example: `  sitecfg show
  sitecfg show -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
}

// Execute writes the current configuration to w.
func Execute(ctx context.Context, app application.Application, w io.Writer) error {
	client, err := app.Client()
	if err != nil {
		return err
	}

	cfg, err := client.Current(ctx)
	if err != nil {
		return err
	}
	if cfg == nil {
		_, err := fmt.Fprintf(w, "No configuration saved in %s yet. Run 'sitecfg reconcile' first.\n", client.StoreLocation())
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, cfg.Record())
	default:
		if format == output.FormatTable || format == output.FormatWide {
			if _, err := fmt.Fprintf(w, "Configuration %s (%s)\n", cfg.ID, cfg.CreatedAt.Format("2006-01-02 15:04:05")); err != nil {
				return err
			}
		}
		return output.NewFormatter(format).Format(w, table.ConfigurationToTableData(cfg))
	}
}
