package session

import (
	"context"
	"time"
)

// Store persists serialized records by key. Load returns models.ErrNotFound
// for a missing or expired key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}
