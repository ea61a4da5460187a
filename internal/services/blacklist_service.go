package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/vestibule/internal/mail"
	"github.com/BradenHooton/vestibule/internal/models"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

// BlacklistRepository defines the ledger operations the service needs
type BlacklistRepository interface {
	RecordFailure(ctx context.Context, ip string, now time.Time) (*models.BlacklistEntry, error)
	Get(ctx context.Context, ip string) (*models.BlacklistEntry, error)
	ClearBlacklist(ctx context.Context, ip string, cutoff time.Time) (bool, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlacklistService counts failed logins per IP and decides whether an IP is
// currently blocked.
type BlacklistService struct {
	repo   BlacklistRepository
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
	now    func() time.Time

	mailer     mail.Mailer
	alertEmail string
	alerts     sync.WaitGroup
}

// NewBlacklistService creates a new BlacklistService
func NewBlacklistService(repo BlacklistRepository, audit *pkglogger.AuditLogger, logger *slog.Logger) *BlacklistService {
	return &BlacklistService{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// WithAlerts mails to whenever an address becomes blacklisted. A blank
// address disables alerts.
func (s *BlacklistService) WithAlerts(mailer mail.Mailer, to string) *BlacklistService {
	s.mailer = mailer
	s.alertEmail = to
	return s
}

func (s *BlacklistService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordFailure adds one failed login to ip's ledger row. Malformed
// addresses are not tracked.
func (s *BlacklistService) RecordFailure(ctx context.Context, ip string) (*models.BlacklistEntry, error) {
	if !pkghttp.ValidIP(ip) {
		s.logger.Warn("not recording failure for malformed ip", slog.String("ip_address", ip))
		return nil, nil
	}

	entry, err := s.repo.RecordFailure(ctx, ip, s.now())
	if err != nil {
		return nil, err
	}

	if entry.Transitioned {
		s.audit.LogSecurityRejection(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventIPBlacklisted,
			IPAddress: ip,
			Metadata:  map[string]string{"login_attempts": strconv.Itoa(entry.LoginAttempts)},
		})
		s.sendAlert(*entry)
	}

	return entry, nil
}

// IsBlacklisted reports whether ip is blocked now. A flag older than the
// blacklist window is cleared in place; the attempt count is kept.
func (s *BlacklistService) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	if !pkghttp.ValidIP(ip) {
		return false, nil
	}

	entry, err := s.repo.Get(ctx, ip)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read blacklist: %w", err)
	}

	now := s.now()
	if !entry.Blacklisted {
		return false, nil
	}
	if entry.Active(now) {
		return true, nil
	}

	cleared, err := s.repo.ClearBlacklist(ctx, ip, now.Add(-models.BlacklistWindow))
	if err != nil {
		return false, err
	}
	if cleared {
		s.audit.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventBlacklistExpired,
			IPAddress: ip,
			Success:   true,
		})
	}
	return false, nil
}

// Sweep deletes ledger rows untouched for longer than the blacklist window.
func (s *BlacklistService) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteStale(ctx, s.now().Add(-models.BlacklistWindow))
	if err != nil {
		return 0, err
	}
	s.logger.Info("ip blacklist swept", slog.Int64("deleted", deleted))
	return deleted, nil
}

// Wait blocks until in-flight alert mails finish.
func (s *BlacklistService) Wait() {
	s.alerts.Wait()
}

type blacklistAlert struct {
	IPAddress string
	Attempts  int
	At        string
	Window    string
}

func (s *BlacklistService) sendAlert(entry models.BlacklistEntry) {
	if s.mailer == nil || s.alertEmail == "" {
		return
	}

	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data := blacklistAlert{
			IPAddress: entry.IPAddress,
			Attempts:  entry.LoginAttempts,
			At:        entry.LastEvent.UTC().Format(time.RFC3339),
			Window:    models.BlacklistWindow.String(),
		}
		if err := s.mailer.SendTemplate(ctx, s.alertEmail, "IP address blacklisted", "blacklist_alert", data); err != nil {
			s.logger.Error("failed to send blacklist alert",
				slog.String("ip_address", entry.IPAddress),
				slog.Any("error", err),
			)
		}
	}()
}
