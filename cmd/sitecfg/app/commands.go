package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg/cmd/sitecfg/cmd/history"
	"github.com/agentstation/sitecfg/cmd/sitecfg/cmd/reconcile"
	"github.com/agentstation/sitecfg/cmd/sitecfg/cmd/show"
	"github.com/agentstation/sitecfg/cmd/sitecfg/cmd/watch"
)

// CreateReconcileCommand creates the reconcile command with app dependencies.
func (a *App) CreateReconcileCommand() *cobra.Command {
	return reconcile.NewCommand(a)
}

// CreateWatchCommand creates the watch command with app dependencies.
func (a *App) CreateWatchCommand() *cobra.Command {
	return watch.NewCommand(a)
}

// CreateShowCommand creates the show command with app dependencies.
func (a *App) CreateShowCommand() *cobra.Command {
	return show.NewCommand(a)
}

// CreateHistoryCommand creates the history command with app dependencies.
func (a *App) CreateHistoryCommand() *cobra.Command {
	return history.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("sitecfg %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
