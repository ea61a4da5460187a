package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func testDB(resets *int) *DB {
	return &DB{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		reset:  func() { *resets++ },
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("query: %w", io.ErrUnexpectedEOF), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"connection failure class", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"no rows", pgx.ErrNoRows, false},
		{"context canceled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectionError(tt.err))
		})
	}
}

func TestRetry_SucceedsFirstTime(t *testing.T) {
	resets := 0
	db := testDB(&resets)
	calls := 0

	err := db.Retry(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, resets)
}

func TestRetry_ReconnectsOnceAfterConnectionLoss(t *testing.T) {
	resets := 0
	db := testDB(&resets)
	calls := 0

	err := db.Retry(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return io.EOF
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, resets)
}

func TestRetry_SurfacesSecondFailure(t *testing.T) {
	resets := 0
	db := testDB(&resets)
	calls := 0

	err := db.Retry(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "57P01"}
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, resets)
}

func TestRetry_DoesNotRetryStatementErrors(t *testing.T) {
	resets := 0
	db := testDB(&resets)
	calls := 0

	err := db.Retry(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, resets)
}

func TestMapPostgresError(t *testing.T) {
	assert.Nil(t, MapPostgresError(nil))
	assert.ErrorIs(t, MapPostgresError(pgx.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, MapPostgresError(&pgconn.PgError{Code: "23505"}), models.ErrConflict)
	assert.ErrorIs(t, MapPostgresError(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23514"})), models.ErrBadRequest)

	other := errors.New("other")
	assert.Equal(t, other, MapPostgresError(other))
}
