package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLoginSuccess       = "login_success"
	EventLoginFailure       = "login_failure"
	EventCSRFRejected       = "csrf_rejected"
	EventLogout             = "logout"
	EventIPBlacklisted      = "ip_blacklisted"
	EventBlacklistedAccess  = "blacklisted_access"
	EventBlacklistExpired   = "blacklist_expired"
	EventSessionInvalidated = "session_invalidated"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events as structured records tagged audit_type=auth.
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. Usernames are redacted when env is "production".
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// Log records event at info level on success and warn level otherwise.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	level := slog.LevelWarn
	if event.Success {
		level = slog.LevelInfo
	}
	al.log(ctx, level, event)
}

// LogSecurityRejection records event at error level. Used for blacklisted traffic.
func (al *AuditLogger) LogSecurityRejection(ctx context.Context, event AuditEvent) {
	al.log(ctx, slog.LevelError, event)
}

func (al *AuditLogger) log(ctx context.Context, level slog.Level, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, RedactedAttr("username", event.Username, al.env))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
