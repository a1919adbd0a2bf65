package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joacominatel/minaweb/internal/config"
)

// NewConnectionsCommand creates the connections command and its subcommands.
func NewConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage saved connection profiles",
		Long: `Saved connections live in ~/.minaweb/config.yaml. Select one with
--connection NAME, or mark one as the default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listConnections(cmd.OutOrStdout(), getConfig(cmd))
		},
	}

	cmd.AddCommand(newConnectionsListCommand())
	cmd.AddCommand(newConnectionsAddCommand())
	cmd.AddCommand(newConnectionsRemoveCommand())
	cmd.AddCommand(newConnectionsDefaultCommand())

	return cmd
}

func newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listConnections(cmd.OutOrStdout(), getConfig(cmd))
		},
	}
}

func listConnections(w io.Writer, cfg *config.Config) error {
	if len(cfg.Connections) == 0 {
		_, _ = fmt.Fprintln(w, "No saved connections")
		return nil
	}

	def := config.DefaultConnection(cfg)
	s := sheet{header: []string{"name", "driver", "target", "keyring", "default"}}
	for _, c := range cfg.Connections {
		mark := ""
		if def != nil && def.Name == c.Name {
			mark = "*"
		}
		keyring := ""
		if c.Keyring {
			keyring = "yes"
		}
		s.rows = append(s.rows, []string{c.Name, c.Driver, c.DisplayString(), keyring, mark})
	}
	return writeSheet(w, s, true)
}

func newConnectionsAddCommand() *cobra.Command {
	var useKeyring bool

	cmd := &cobra.Command{
		Use:   "add NAME [URL]",
		Short: "Save a connection string as a profile",
		Long: `Save URL (or the current --database-url / DATABASE_URL) under NAME.
The password is moved to the OS keyring unless --keyring=false.`,
		Example: `  minaweb connections add prod postgresql://app:secret@db:5432/shop
  minaweb connections add local sqlite:///home/me/app.db`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)

			dsn := cfg.DatabaseURL
			if len(args) == 2 {
				dsn = args[1]
			}
			if dsn == "" {
				return config.ErrNoDatabaseURL
			}

			conn, err := config.ParseDSN(dsn)
			if err != nil {
				return err
			}
			conn.Name = args[0]

			if useKeyring {
				if err := config.StorePassword(&conn); err != nil {
					return err
				}
			}

			cfg.AddConnection(conn)
			if err := saveConfig(cmd, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved connection %s (%s)\n", conn.Name, conn.DisplayString())
			return nil
		},
	}

	cmd.Flags().BoolVar(&useKeyring, "keyring", true, "store the password in the OS keyring")
	return cmd
}

func newConnectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a saved connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			if !cfg.RemoveConnection(args[0]) {
				return fmt.Errorf("unknown connection %q", args[0])
			}
			if err := saveConfig(cmd, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %s\n", args[0])
			return nil
		},
	}
}

func newConnectionsDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default NAME",
		Short: "Use a saved connection when no URL is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			if !cfg.HasConnection(args[0]) {
				return fmt.Errorf("unknown connection %q", args[0])
			}
			cfg.Preferences.DefaultConnection = args[0]
			if err := saveConfig(cmd, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default connection is now %s\n", args[0])
			return nil
		},
	}
}
