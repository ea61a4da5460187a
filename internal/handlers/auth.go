package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/BradenHooton/vestibule/internal/services"
	"github.com/BradenHooton/vestibule/internal/session"
	"github.com/BradenHooton/vestibule/internal/views"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
)

// Flash messages shown on the login and home pages
const (
	MsgInvalidCSRF        = "Invalid CSRF token. Please try again."
	MsgInvalidCredentials = "Invalid username or password."
	MsgIPBlacklisted      = "Your IP has been blacklisted due to multiple failed login attempts."
	MsgNothingToProcess   = "Nothing to process."
)

const maxFormBytes = 64 << 10

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, sess *session.Session, in services.LoginInput) error
	Logout(ctx context.Context, sess *session.Session, csrfToken, ip string) error
}

// SessionValidator checks idle timeout and fingerprint for a session
type SessionValidator interface {
	Validate(s *session.Session, fingerprint string) bool
}

// AuthHandler serves /login
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionValidator
	views    *views.Renderer
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, sessions SessionValidator, renderer *views.Renderer, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		views:    renderer,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// ShowLogin handles GET /login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if h.loggedIn(sess, r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.renderLogin(w, sess, http.StatusOK)
}

// loggedIn reports whether an authenticated session is still valid. Anonymous
// sessions are not subject to the idle timeout on the login page.
func (h *AuthHandler) loggedIn(sess *session.Session, r *http.Request) bool {
	if sess == nil || !sess.Authenticated() {
		return false
	}
	return h.sessions.Validate(sess, auth.Fingerprint(r.UserAgent()))
}

// SubmitLogin handles POST /login, both the login form and the logout button.
func (h *AuthHandler) SubmitLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		pkghttp.WriteError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if r.PostForm.Has("logout") {
		h.logout(w, r, sess, ip)
		return
	}

	if h.loggedIn(sess, r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	err := h.service.Login(r.Context(), sess, services.LoginInput{
		Username:  r.PostFormValue("username"),
		Password:  r.PostFormValue("password"),
		CSRFToken: r.PostFormValue("csrf_token"),
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})

	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, models.ErrInvalidCSRFToken):
		sess.AddFlash(MsgInvalidCSRF)
	case errors.Is(err, models.ErrIPBlacklisted):
		sess.AddFlash(MsgIPBlacklisted)
	case errors.Is(err, models.ErrInvalidCredentials):
		sess.AddFlash(MsgInvalidCredentials)
	default:
		h.logger.Error("login failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	h.renderLogin(w, sess, http.StatusOK)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request, sess *session.Session, ip string) {
	err := h.service.Logout(r.Context(), sess, r.PostFormValue("csrf_token"), ip)

	switch {
	case err == nil, errors.Is(err, models.ErrNotAuthenticated):
	case errors.Is(err, models.ErrInvalidCSRFToken):
		sess.AddFlash(MsgInvalidCSRF)
	default:
		h.logger.Error("logout failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, sess *session.Session, status int) {
	csrf, err := sess.EnsureCSRFToken()
	if err != nil {
		h.logger.Error("failed to issue csrf token", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	data := views.PageData{
		CSRFToken: csrf,
		Flashes:   sess.PopFlashes(),
	}
	if err := h.views.Render(w, status, views.PageLogin, data); err != nil {
		h.logger.Error("failed to render login page", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
	}
}
