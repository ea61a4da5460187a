package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/models"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
)

// Config controls cookie attributes and record lifetimes.
type Config struct {
	Cookie      auth.CookieConfig
	IdleTimeout time.Duration // max gap between validated requests
	Lifetime    time.Duration // how long an untouched record is kept in the store
}

// Manager loads sessions from a Store, validates them and commits changes.
type Manager struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Load resolves the request's cookie to a Session. A missing, unknown or
// unreadable cookie yields a fresh session carrying a new CSRF token.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := auth.GetSessionCookie(r, m.cfg.Cookie)
	if token != "" {
		data, err := m.store.Load(ctx, storeKey(token))
		switch {
		case err == nil:
			var rec Record
			if err := json.Unmarshal(data, &rec); err == nil {
				return &Session{token: token, record: rec}, nil
			}
			m.logger.Warn("discarding unreadable session record", slog.Any("error", err))
		case errors.Is(err, models.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	sess := &Session{}
	if _, err := sess.EnsureCSRFToken(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Commit persists the session: retired tokens are deleted, a modified
// record is saved under its (possibly new) token and the cookie is set, and
// a destroyed session that was not written again has its cookie cleared.
// Must run before the response header is written.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.retired {
		if err := m.store.Delete(ctx, storeKey(old)); err != nil {
			return err
		}
	}
	s.retired = nil

	if !s.modified {
		if s.destroyed {
			auth.ClearSessionCookie(w, r, m.cfg.Cookie)
		}
		return nil
	}

	if s.token == "" {
		token, err := newToken()
		if err != nil {
			return err
		}
		s.token = token
	}

	data, err := json.Marshal(s.record)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := m.store.Save(ctx, storeKey(s.token), data, m.now().Add(m.cfg.Lifetime)); err != nil {
		return err
	}

	auth.SetSessionCookie(w, r, s.token, m.cfg.Cookie)
	s.modified = false
	s.destroyed = false
	return nil
}

// Validate checks the idle timeout and the client fingerprint. A session
// that fails either check is destroyed and false is returned. Otherwise the
// activity stamp is refreshed and the authenticated flag is returned.
func (m *Manager) Validate(s *Session, fingerprint string) bool {
	now := m.now()
	rec := s.Record()

	expired := !rec.LastActivity.IsZero() && now.Sub(rec.LastActivity) > m.cfg.IdleTimeout
	mismatch := rec.Fingerprint != "" && rec.Fingerprint != fingerprint

	if expired || mismatch {
		m.logger.Info("session invalidated",
			slog.Bool("expired", expired),
			slog.Bool("fingerprint_mismatch", mismatch),
		)
		s.Destroy()
		return false
	}

	s.Update(func(r *Record) {
		r.LastActivity = now
	})
	return rec.Authenticated
}

// LoadAndSave is middleware that attaches the Session to the request
// context and commits it just before the first byte of the response.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Load(r.Context(), r)
		if err != nil {
			m.logger.Error("session load failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w)
			return
		}

		cw := &commitWriter{
			ResponseWriter: w,
			commit: func() error {
				return m.Commit(r.Context(), w, r, sess)
			},
			logger: m.logger,
		}

		next.ServeHTTP(cw, r.WithContext(NewContext(r.Context(), sess)))

		if !cw.committed {
			cw.WriteHeader(http.StatusOK)
		}
	})
}

// commitWriter runs commit once, before the wrapped writer's header goes
// out. A failed commit replaces the response with an opaque 500.
type commitWriter struct {
	http.ResponseWriter
	commit    func() error
	logger    *slog.Logger
	committed bool
	failed    bool
}

func (cw *commitWriter) WriteHeader(code int) {
	if !cw.committed {
		cw.committed = true
		if err := cw.commit(); err != nil {
			cw.failed = true
			cw.logger.Error("session commit failed", slog.Any("error", err))
			cw.ResponseWriter.Header().Del("Location")
			pkghttp.WriteInternalError(cw.ResponseWriter)
			return
		}
	}
	if cw.failed {
		return
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	if !cw.committed {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.failed {
		return len(b), nil
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's Session, or nil outside LoadAndSave.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
