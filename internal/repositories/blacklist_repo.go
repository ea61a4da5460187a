package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/vestibule/internal/database"
	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/jackc/pgx/v5"
)

// BlacklistRepository persists the per-IP failed-login ledger.
type BlacklistRepository struct {
	db *database.DB
}

// NewBlacklistRepository creates a new BlacklistRepository
func NewBlacklistRepository(db *database.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// RecordFailure counts one failed login for ip. The row is created if
// missing and locked before the increment, so concurrent failures from the
// same address are serialized and exactly one of them reports the flag
// flipping on. last_event is stamped at creation and whenever the new count
// reaches the threshold.
func (r *BlacklistRepository) RecordFailure(ctx context.Context, ip string, now time.Time) (*models.BlacklistEntry, error) {
	createQuery := `
		INSERT INTO ip_blacklist (ip_address, login_attempts, blacklisted, last_event)
		VALUES ($1, 0, FALSE, $2)
		ON CONFLICT (ip_address) DO NOTHING
	`

	lockQuery := `SELECT blacklisted FROM ip_blacklist WHERE ip_address = $1 FOR UPDATE`

	incrementQuery := `
		UPDATE ip_blacklist SET
			login_attempts = login_attempts + 1,
			blacklisted = login_attempts + 1 >= $3::int,
			last_event = CASE
				WHEN login_attempts + 1 >= $3::int THEN $2
				ELSE last_event
			END
		WHERE ip_address = $1
		RETURNING ip_address, login_attempts, blacklisted, last_event
	`

	var entry models.BlacklistEntry
	err := r.db.Retry(ctx, "ip_blacklist.record_failure", func(ctx context.Context) error {
		return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, createQuery, ip, now); err != nil {
				return err
			}

			var was bool
			if err := tx.QueryRow(ctx, lockQuery, ip).Scan(&was); err != nil {
				return err
			}

			err := tx.QueryRow(ctx, incrementQuery, ip, now, models.BlacklistThreshold).Scan(
				&entry.IPAddress, &entry.LoginAttempts, &entry.Blacklisted, &entry.LastEvent,
			)
			if err != nil {
				return err
			}
			entry.Transitioned = entry.Blacklisted && !was
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record login failure: %w", err)
	}

	return &entry, nil
}

// Get returns models.ErrNotFound when the address has no ledger row.
func (r *BlacklistRepository) Get(ctx context.Context, ip string) (*models.BlacklistEntry, error) {
	query := `
		SELECT ip_address, login_attempts, blacklisted, last_event
		FROM ip_blacklist WHERE ip_address = $1
	`

	var entry models.BlacklistEntry
	err := r.db.Retry(ctx, "ip_blacklist.get", func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, query, ip).Scan(
			&entry.IPAddress, &entry.LoginAttempts, &entry.Blacklisted, &entry.LastEvent,
		)
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

// ClearBlacklist drops the flag if it was set before cutoff. The attempt
// count is kept. Reports whether a row changed.
func (r *BlacklistRepository) ClearBlacklist(ctx context.Context, ip string, cutoff time.Time) (bool, error) {
	query := `
		UPDATE ip_blacklist SET blacklisted = FALSE
		WHERE ip_address = $1 AND blacklisted AND last_event < $2
	`

	var affected int64
	err := r.db.Retry(ctx, "ip_blacklist.clear", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, query, ip, cutoff)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to clear blacklist flag: %w", err)
	}

	return affected > 0, nil
}

// DeleteStale removes every row whose last_event is before cutoff.
func (r *BlacklistRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM ip_blacklist WHERE last_event < $1`

	var deleted int64
	err := r.db.Retry(ctx, "ip_blacklist.delete_stale", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep ip blacklist: %w", err)
	}

	return deleted, nil
}
