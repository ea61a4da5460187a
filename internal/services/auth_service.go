package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/BradenHooton/vestibule/internal/session"
	pkgauth "github.com/BradenHooton/vestibule/pkg/auth"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

// UserRepository is the credential store lookup
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Blacklist is the part of BlacklistService the login gate needs
type Blacklist interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
	RecordFailure(ctx context.Context, ip string) (*models.BlacklistEntry, error)
}

// LoginInput is one submitted login form.
type LoginInput struct {
	Username  string `validate:"required,max=255"`
	Password  string `validate:"required,max=72"`
	CSRFToken string
	IPAddress string
	UserAgent string
}

// AuthService handles login and logout against a session.
type AuthService struct {
	users     UserRepository
	blacklist Blacklist
	timing    *auth.TimingDelay
	audit     *pkglogger.AuditLogger
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, blacklist Blacklist, timing *auth.TimingDelay, audit *pkglogger.AuditLogger, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		blacklist: blacklist,
		timing:    timing,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login checks the CSRF token, then the credentials. On success the session
// is populated, given a new CSRF token and moved to a new ID. On failure
// the IP's ledger is charged unless the IP is already blacklisted.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, in LoginInput) error {
	start := time.Now()

	if !auth.ValidCSRFToken(sess.CSRFToken(), in.CSRFToken) {
		s.audit.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventCSRFRejected,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
			Metadata:  map[string]string{"action": "login"},
		})
		return models.ErrInvalidCSRFToken
	}

	in.Username = strings.TrimSpace(in.Username)

	user, err := s.checkCredentials(ctx, in)
	if err != nil {
		return err
	}

	if user != nil {
		csrf, err := auth.GenerateCSRFToken()
		if err != nil {
			return err
		}

		now := s.now()
		sess.Update(func(r *session.Record) {
			r.Authenticated = true
			r.Username = user.Username
			r.IsAdmin = user.IsAdmin
			r.Fingerprint = auth.Fingerprint(in.UserAgent)
			r.CSRFToken = csrf
			r.LastActivity = now
		})
		if err := sess.RegenerateID(); err != nil {
			return err
		}

		s.audit.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventLoginSuccess,
			Username:  user.Username,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
			Success:   true,
		})
		return nil
	}

	s.timing.WaitFrom(ctx, start, false)

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, in.IPAddress)
	if err != nil {
		return err
	}
	if blacklisted {
		s.audit.LogSecurityRejection(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailure,
			Username:      in.Username,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "ip_blacklisted",
		})
		return models.ErrIPBlacklisted
	}

	if _, err := s.blacklist.RecordFailure(ctx, in.IPAddress); err != nil {
		return err
	}

	s.audit.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailure,
		Username:      in.Username,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		FailureReason: "invalid_credentials",
	})
	return models.ErrInvalidCredentials
}

// checkCredentials returns the matching user, or nil when the input is
// invalid, the user is unknown or the password is wrong. Every miss costs
// one bcrypt comparison.
func (s *AuthService) checkCredentials(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := ValidateInput(in); err != nil {
		s.logger.Debug("login input rejected", slog.Any("error", err))
		pkgauth.CompareDummy(in.Password)
		return nil, nil
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, models.ErrNotFound) {
		pkgauth.CompareDummy(in.Password)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return nil, nil
	}
	return user, nil
}

// Logout destroys an authenticated session after checking its CSRF token.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session, csrfToken, ip string) error {
	if !sess.Authenticated() {
		return models.ErrNotAuthenticated
	}
	if !auth.ValidCSRFToken(sess.CSRFToken(), csrfToken) {
		s.audit.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventCSRFRejected,
			Username:  sess.Username(),
			IPAddress: ip,
			Metadata:  map[string]string{"action": "logout"},
		})
		return models.ErrInvalidCSRFToken
	}

	username := sess.Username()
	sess.Destroy()

	s.audit.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		Username:  username,
		IPAddress: ip,
		Success:   true,
	})
	return nil
}
