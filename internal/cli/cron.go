package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/vestibule/internal/background"
	"github.com/BradenHooton/vestibule/internal/repositories"
	"github.com/BradenHooton/vestibule/internal/services"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

// Job types accepted by "cron"
const (
	JobHourly = "hourly"
	JobDaily  = "daily"
)

// ErrInvalidJobType is returned for a cron argument other than hourly or daily.
var ErrInvalidJobType = errors.New("invalid job type")

// cleanupJobs is the part of background.CleanupManager the cron jobs drive
type cleanupJobs interface {
	SweepLedger(ctx context.Context) error
	PurgeSessions(ctx context.Context) error
}

func newCronCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cron <hourly|daily>",
		Short: "Run a scheduled maintenance job",
		Long: `Run a scheduled maintenance job once and exit.

  hourly  delete IP ledger rows whose last event is older than the blacklist window
  daily   delete expired session records (PostgreSQL session store only)`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{JobHourly, JobDaily},
		RunE:      func(cmd *cobra.Command, args []string) error {
			if !validJob(args[0]) {
				return fmt.Errorf("%w: %q", ErrInvalidJobType, args[0])
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			audit := pkglogger.NewAuditLogger(a.logger, a.cfg.Server.Env)
			ledger := services.NewBlacklistService(repositories.NewBlacklistRepository(db), audit, a.logger)

			var purger background.SessionPurger
			if a.cfg.Session.Store == "postgres" {
				purger = repositories.NewSessionRepository(db)
			}

			jobs := background.NewCleanupManager(ledger, purger, a.logger, a.cfg.Auth.CleanupInterval)
			if err := runJob(cmd.Context(), args[0], jobs); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s job completed\n", args[0])
			return nil
		},
	}
}

func validJob(jobType string) bool {
	return jobType == JobHourly || jobType == JobDaily
}

func runJob(ctx context.Context, jobType string, jobs cleanupJobs) error {
	switch jobType {
	case JobHourly:
		return jobs.SweepLedger(ctx)
	case JobDaily:
		return jobs.PurgeSessions(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidJobType, jobType)
	}
}
