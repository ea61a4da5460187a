package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/vestibule/internal/models"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger(), "test")
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

// MockBlacklist implements Blacklist for testing
type MockBlacklist struct {
	IsBlacklistedFunc func(ctx context.Context, ip string) (bool, error)
	RecordFailureFunc func(ctx context.Context, ip string) (*models.BlacklistEntry, error)

	recorded []string
}

func (m *MockBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	if m.IsBlacklistedFunc != nil {
		return m.IsBlacklistedFunc(ctx, ip)
	}
	return false, nil
}

func (m *MockBlacklist) RecordFailure(ctx context.Context, ip string) (*models.BlacklistEntry, error) {
	m.recorded = append(m.recorded, ip)
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, ip)
	}
	return &models.BlacklistEntry{IPAddress: ip, LoginAttempts: len(m.recorded)}, nil
}

// MockBlacklistRepository implements BlacklistRepository for testing
type MockBlacklistRepository struct {
	RecordFailureFunc func(ctx context.Context, ip string, now time.Time) (*models.BlacklistEntry, error)
}

func (m *MockBlacklistRepository) RecordFailure(ctx context.Context, ip string, now time.Time) (*models.BlacklistEntry, error) {
	return m.RecordFailureFunc(ctx, ip, now)
}

func (m *MockBlacklistRepository) Get(ctx context.Context, ip string) (*models.BlacklistEntry, error) {
	return nil, models.ErrNotFound
}

func (m *MockBlacklistRepository) ClearBlacklist(ctx context.Context, ip string, cutoff time.Time) (bool, error) {
	return false, nil
}

func (m *MockBlacklistRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// memoryLedger mirrors the SQL semantics of BlacklistRepository.
type memoryLedger struct {
	mu   sync.Mutex
	rows map[string]*models.BlacklistEntry
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[string]*models.BlacklistEntry)}
}

func (l *memoryLedger) RecordFailure(_ context.Context, ip string, now time.Time) (*models.BlacklistEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[ip]
	if !ok {
		row = &models.BlacklistEntry{IPAddress: ip, LastEvent: now}
		l.rows[ip] = row
	}
	was := row.Blacklisted
	row.LoginAttempts++
	row.Blacklisted = row.LoginAttempts >= models.BlacklistThreshold
	if row.Blacklisted {
		row.LastEvent = now
	}
	cp := *row
	cp.Transitioned = row.Blacklisted && !was
	return &cp, nil
}

func (l *memoryLedger) Get(_ context.Context, ip string) (*models.BlacklistEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[ip]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (l *memoryLedger) ClearBlacklist(_ context.Context, ip string, cutoff time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[ip]
	if !ok || !row.Blacklisted || !row.LastEvent.Before(cutoff) {
		return false, nil
	}
	row.Blacklisted = false
	return true, nil
}

func (l *memoryLedger) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for ip, row := range l.rows {
		if row.LastEvent.Before(cutoff) {
			delete(l.rows, ip)
			n++
		}
	}
	return n, nil
}
