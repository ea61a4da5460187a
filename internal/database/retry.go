package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsConnectionError reports whether err means the server connection was
// lost or could not be established, as opposed to a statement failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection_exception; 57P01-57P03 admin/crash shutdown, cannot_connect_now
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}

// Retry runs fn and, if it fails with a connection error, resets the pool and
// runs it exactly once more. Any other error, or a second failure, is returned.
func (db *DB) Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !IsConnectionError(err) {
		return err
	}

	db.logger.Warn("database connection lost, reconnecting",
		slog.String("op", op),
		slog.Any("error", err),
	)
	if db.reset != nil {
		db.reset()
	}

	if err := fn(ctx); err != nil {
		db.logger.Error("database retry failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
