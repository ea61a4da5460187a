package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LedgerSweeper removes stale failed-login ledger rows
type LedgerSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SessionPurger removes expired session records. Stores that expire records
// on their own (Redis) have no purger.
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps the IP ledger and purges expired sessions
type CleanupManager struct {
	ledger   LedgerSweeper
	sessions SessionPurger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. sessions may be nil.
func NewCleanupManager(ledger LedgerSweeper, sessions SessionPurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		ledger:   ledger,
		sessions: sessions,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := cm.SweepLedger(cleanupCtx); err != nil {
		cm.logger.Error("failed to sweep ip blacklist", slog.Any("error", err))
	}
	if err := cm.PurgeSessions(cleanupCtx); err != nil {
		cm.logger.Error("failed to purge expired sessions", slog.Any("error", err))
	}
}

// SweepLedger deletes ledger rows whose last event is outside the blacklist window.
func (cm *CleanupManager) SweepLedger(ctx context.Context) error {
	_, err := cm.ledger.Sweep(ctx)
	return err
}

// PurgeSessions deletes expired session records, if the store needs it.
func (cm *CleanupManager) PurgeSessions(ctx context.Context) error {
	if cm.sessions == nil {
		return nil
	}

	rowsDeleted, err := cm.sessions.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if rowsDeleted > 0 {
		cm.logger.Info("expired session cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
	return nil
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
