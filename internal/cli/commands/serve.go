package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joacominatel/minaweb/internal/server"
)

// AddServeFlags registers the flags that tune the web server.
func AddServeFlags(fs *pflag.FlagSet) {
	fs.StringP("listen", "l", "", "address to listen on (default 127.0.0.1:8080)")
	fs.Int32("max-conns", 0, "maximum pooled database connections (default 5)")
	fs.Duration("query-timeout", 0, "timeout for each catalog query and table scan (default 30s)")
	fs.Duration("acquire-timeout", 0, "how long a request waits for a pooled connection (default 5s)")
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the database as HTML pages",
		Long: `Connect to the database and serve it over HTTP until interrupted.

The connection is established once at startup; if it fails the command exits.
Requests share a small connection pool, so one slow table scan does not block
the rest of the site.`,
		Example: `  # Serve the database named by DATABASE_URL on 127.0.0.1:8080
  minaweb serve

  # Serve a SQLite file on every interface
  minaweb serve --database-url sqlite:///var/lib/app.db --listen :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunServe(cmd)
		},
	}

	AddServeFlags(cmd.Flags())
	return cmd
}

// RunServe connects and serves until the command context is cancelled.
func RunServe(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cmdCtx.Logger.Info("serving database",
		slog.String("database", cmdCtx.Service.DatabaseName()),
		slog.Int("max_conns", int(cmdCtx.Cfg.Pool.MaxConns)),
	)

	srv := server.New(server.Config{
		Catalog: cmdCtx.Service,
		Listen:  cmdCtx.Cfg.Listen,
		Logger:  cmdCtx.Logger,
	})
	return srv.Serve(cmd.Context())
}
