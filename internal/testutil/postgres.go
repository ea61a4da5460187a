//go:build integration

package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/vestibule/internal/database"
)

// TestDB is a migrated PostgreSQL instance running in a container.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
}

// SetupTestDatabase starts postgres:16-alpine and applies the embedded migrations.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("vestibule"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &TestDB{Container: container, DB: database.New(pool, logger)}, nil
}

// Truncate empties every application table.
func (tdb *TestDB) Truncate(ctx context.Context) error {
	_, err := tdb.DB.Pool.Exec(ctx, `TRUNCATE users, ip_blacklist, sessions`)
	return err
}

func (tdb *TestDB) Close(ctx context.Context) {
	tdb.DB.Pool.Close()
	_ = tdb.Container.Terminate(ctx)
}
