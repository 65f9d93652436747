// Package history implements the history command.
package history

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg/internal/cmd/application"
	"github.com/agentstation/sitecfg/internal/cmd/output"
	"github.com/agentstation/sitecfg/internal/cmd/table"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// DefaultLimit is how many configurations are listed without --limit.
const DefaultLimit = 10

// NewCommand creates the history command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: "inspect",
		Short:   "List saved configurations",
		Long: `History lists saved configurations, newest first. The first entry is the
current configuration.`,
		Example: `  sitecfg history
  sitecfg history --limit 0                 # List everything kept
  sitecfg history -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit cannot be negative")
			}
			return Execute(cmd.Context(), app, cmd.OutOrStdout(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultLimit, "maximum configurations to list (0 for all)")

	return cmd
}

// Execute writes up to limit saved configurations to w.
func Execute(ctx context.Context, app application.Application, w io.Writer, limit int) error {
	client, err := app.Client()
	if err != nil {
		return err
	}

	cfgs, err := client.History(ctx, limit)
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	switch format {
	case output.FormatJSON, output.FormatYAML:
		records := make([]sites.ConfigurationRecord, 0, len(cfgs))
		for _, cfg := range cfgs {
			records = append(records, cfg.Record())
		}
		return output.NewFormatter(format).Format(w, records)
	default:
		if len(cfgs) == 0 {
			_, err := fmt.Fprintf(w, "No configurations saved in %s.\n", client.StoreLocation())
			return err
		}
		return output.NewFormatter(format).Format(w, table.HistoryToTableData(cfgs))
	}
}
