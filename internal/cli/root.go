// Package cli provides the command-line interface for minaweb.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/cli/commands"
	"github.com/joacominatel/minaweb/internal/config"
	"github.com/joacominatel/minaweb/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command. Without a subcommand it
// serves the web browser.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "minaweb",
		Short: "minaweb - browse a database from a web browser",
		Long: `minaweb serves a read-only HTML view of a PostgreSQL or SQLite database.

  /                  lists the schemas
  /<schema>          lists the tables of a schema
  /<schema>/<table>  shows every row of a table

The connection comes from --database-url, DATABASE_URL, a .env file in the
working directory, or a saved connection profile.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help, version and completion commands
			switch cmd.Name() {
			case "help", "version", "completion", "__complete":
				return nil
			}
			return setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.RunServe(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (%s, %s)\n", GitCommit, BuildDate))

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ~/.minaweb/config.yaml)")
	pf.String("database-url", "", "database connection string (overrides DATABASE_URL)")
	pf.StringP("connection", "c", "", "saved connection profile to use")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("connection", completeConnections)

	commands.AddServeFlags(rootCmd.Flags())

	// Add subcommands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewDumpCommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(commands.NewConnectionsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// setup loads and validates the configuration, then stores it and the
// process logger in the command context.
func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return &app.ErrConfig{Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return &app.ErrConfig{Cause: err}
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return &app.ErrConfig{Cause: err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = config.NewContext(ctx, cfg)
	ctx = logging.WithLogger(ctx, logger)
	cmd.SetContext(ctx)
	return nil
}

func completeConnections(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(cfg.Connections))
	for _, c := range cfg.Connections {
		names = append(names, c.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
