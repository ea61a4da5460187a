package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/session"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

// BlacklistChecker reports whether an address is currently blocked
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
}

// SessionValidator checks a session's idle timeout and fingerprint
type SessionValidator interface {
	Validate(s *session.Session, fingerprint string) bool
}

// Guard protects routes from blacklisted addresses and anonymous sessions.
type Guard struct {
	blacklist BlacklistChecker
	sessions  SessionValidator
	ipConfig  *pkghttp.IPConfig
	audit     *pkglogger.AuditLogger
	logger    *slog.Logger
}

func NewGuard(blacklist BlacklistChecker, sessions SessionValidator, ipConfig *pkghttp.IPConfig, audit *pkglogger.AuditLogger, logger *slog.Logger) *Guard {
	return &Guard{
		blacklist: blacklist,
		sessions:  sessions,
		ipConfig:  ipConfig,
		audit:     audit,
		logger:    logger,
	}
}

// RejectBlacklisted answers 403 for any request from a blacklisted address.
func (g *Guard) RejectBlacklisted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := pkghttp.ExtractClientIP(r, g.ipConfig)

		blocked, err := g.blacklist.IsBlacklisted(r.Context(), ip)
		if err != nil {
			g.logger.Error("blacklist lookup failed", slog.String("ip_address", ip), slog.Any("error", err))
			pkghttp.WriteInternalError(w)
			return
		}
		if blocked {
			g.audit.LogSecurityRejection(r.Context(), pkglogger.AuditEvent{
				EventType:     pkglogger.EventBlacklistedAccess,
				IPAddress:     ip,
				UserAgent:     r.UserAgent(),
				FailureReason: "blacklisted ip",
				Metadata:      map[string]string{"path": r.URL.Path},
			})
			pkghttp.WriteForbidden(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSession validates the session and sends anonymous callers to /login.
// Must run inside the session middleware.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || !g.sessions.Validate(sess, auth.Fingerprint(r.UserAgent())) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}
