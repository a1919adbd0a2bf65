package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/config"
	"github.com/joacominatel/minaweb/internal/logging"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Service *app.Service
}

// NewCommandContext resolves the connection string and connects. A missing
// URL is an *app.ErrConfig and an unreachable database an *app.ErrConnection;
// both end the process. The cleanup function must be called (typically via
// defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg := getConfig(cmd)
	logger := logging.FromContext(ctx)

	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, nil, &app.ErrConfig{Cause: err}
	}

	svc, err := connect(ctx, cfg, logger, dsn)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("connected", slog.String("database", svc.DatabaseName()))

	cleanup := func() {
		if err := svc.Disconnect(); err != nil {
			logger.Warn("disconnect failed", slog.Any("error", err))
		}
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Service: svc,
	}, cleanup, nil
}

// connect builds the backend for dsn with the configured pool and opens it.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, dsn string) (*app.Service, error) {
	driver := app.NewDriver(dsn, app.PoolOptions{
		MaxConns:       cfg.Pool.MaxConns,
		MinConns:       cfg.Pool.MinConns,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	})
	svc := app.NewService(driver, app.Options{
		QueryTimeout: cfg.QueryTimeout,
		Logger:       logger,
	})
	if err := svc.Connect(ctx, dsn); err != nil {
		return nil, err
	}
	return svc, nil
}

// getConfig returns the configuration loaded by the root command, loading
// it from the command's flags when the command runs on its own.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return &config.Config{}
	}
	return cfg
}

// saveConfig writes profiles back to the file named by --config, or to the
// default location.
func saveConfig(cmd *cobra.Command, cfg *config.Config) error {
	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		return config.SaveAs(cfg, f.Value.String())
	}
	return config.Save(cfg)
}
