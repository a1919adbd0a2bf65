package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/joacominatel/minaweb/internal/config"
	"github.com/joacominatel/minaweb/internal/tui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the database in the terminal",
		Long: `Open a terminal browser over the same catalog the web pages show.

With a connection string (flag, DATABASE_URL or default profile) it connects
straight away; otherwise it lists the saved profiles or asks for a URL.
Connection strings typed into the browser are saved as profiles, with the
password kept in the OS keyring.`,
		Args: cobra.NoArgs,
		RunE: runBrowse,
	}
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	cfg := getConfig(cmd)

	dsn, err := cfg.ResolveDSN()
	if err != nil && !errors.Is(err, config.ErrNoDatabaseURL) {
		return err
	}

	// The terminal belongs to the browser while it runs.
	logger := slog.New(slog.DiscardHandler)
	connector := func(ctx context.Context, dsn string) (tui.Catalog, error) {
		svc, err := connect(ctx, cfg, logger, dsn)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}

	model := tui.NewModel(tui.Options{
		Config:  cfg,
		Connect: connector,
		DSN:     dsn,
		Timeout: cfg.QueryTimeout,
	})
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	finalModel, err := p.Run()
	if m, ok := finalModel.(tui.Model); ok {
		_ = m.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}
