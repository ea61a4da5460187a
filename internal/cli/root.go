// Package cli provides the vestibulectl maintenance commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/vestibule/internal/config"
	"github.com/BradenHooton/vestibule/internal/database"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

// app holds what every subcommand needs once the root pre-run has loaded it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the vestibulectl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vestibulectl",
		Short: "Maintenance commands for the Vestibule login gateway",
		Long: `vestibulectl runs the scheduled and one-off maintenance jobs of a
Vestibule deployment: schema migrations, ledger sweeps, expired session
purges and credential provisioning.

Configuration is read from the environment (and a .env file when present),
the same way the server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = pkglogger.New(pkglogger.Config{Level: cfg.Server.LogLevel, File: cfg.Server.LogFile})
			return nil
		},
	}

	root.AddCommand(
		newCronCommand(a),
		newMigrateCommand(a),
		newUserCommand(a),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) openDB() (*database.DB, error) {
	db, err := database.NewConnection(&a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
