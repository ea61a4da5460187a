package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/vestibule/internal/database"
)

// SessionRepository is the PostgreSQL session store. Keys are token hashes;
// values are opaque JSON documents.
type SessionRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Load returns models.ErrNotFound for unknown or expired keys.
func (r *SessionRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM sessions WHERE token_hash = $1 AND expires_at > $2`

	var data []byte
	err := r.db.Retry(ctx, "sessions.load", func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, query, key, r.now()).Scan(&data)
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return data, nil
}

func (r *SessionRepository) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	query := `
		INSERT INTO sessions (token_hash, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at
	`

	err := r.db.Retry(ctx, "sessions.save", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query, key, data, expiresAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	err := r.db.Retry(ctx, "sessions.delete", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions past their expiry and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.Retry(ctx, "sessions.delete_expired", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, r.now())
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return deleted, nil
}
