package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/pkg/logging"
)

// Execute runs the sitecfg CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// flags holds values of root flags that are applied on top of the loaded config.
type flags struct {
	configFile  string
	platform    string
	installBase string
	storeDriver string
	storePath   string
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:     "sitecfg",
		Short:   "Platform site configuration reconciler",
		Version: a.version,
		Long: `sitecfg keeps a platform's site configuration in step with what is
installed. It discovers the sites declared in the platform description and the
features installed at each, merges them with the stored configuration so that
activation choices survive, and leaves a single configured version of each
feature.

Each saved configuration is kept in history in a YAML directory or a SQLite
database.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, f)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspect",
		Title: "Inspection Commands:",
	})

	// Add global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default is $HOME/.sitecfg.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.Bool("no-color", false, "disable colored output")
	pf.StringP("format", "o", "", "output format: table, json, yaml, markdown")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVar(&f.platform, "platform", "", "platform description file (default is ./platform.yaml)")
	pf.StringVar(&f.installBase, "install-base", "", "directory platform:/base/ URLs resolve against")
	pf.StringVar(&f.storeDriver, "store-driver", "", "configuration store: yaml, sqlite, memory")
	pf.StringVar(&f.storePath, "store", "", "configuration store directory or database file")

	// Customize version output to match version subcommand
	rootCmd.SetVersionTemplate("sitecfg {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, f *flags) error {
	// An explicit config file replaces the one loaded at startup
	if f.configFile != "" {
		config, err := LoadConfig(f.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	// These flags are defined as persistent flags in createRootCommand, so errors indicate programming errors
	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
	)
	if f.platform != "" {
		a.config.Platform = f.platform
	}
	if f.installBase != "" {
		a.config.InstallBase = f.installBase
	}
	if f.storeDriver != "" {
		a.config.StoreDriver = f.storeDriver
		if f.storePath == "" && !a.config.storePathSet {
			a.config.StorePath = defaultStorePath(store.Driver(f.storeDriver))
		}
	}
	if f.storePath != "" {
		a.config.StorePath = f.storePath
	}

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.CreateReconcileCommand())
	rootCmd.AddCommand(a.CreateWatchCommand())

	// Inspection commands
	rootCmd.AddCommand(a.CreateShowCommand())
	rootCmd.AddCommand(a.CreateHistoryCommand())

	// Utility commands
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// ExitOnError prints err and exits with the status ExitCode assigns it.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(ExitCode(err))
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
