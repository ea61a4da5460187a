package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BradenHooton/vestibule/internal/services"
	"github.com/BradenHooton/vestibule/internal/session"
)

// NewFormRequest creates a form-encoded request for testing
func NewFormRequest(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "test-agent")
	return req
}

// WithSession attaches sess to the request context the way the session
// middleware does
func WithSession(req *http.Request, sess *session.Session) *http.Request {
	return req.WithContext(session.NewContext(req.Context(), sess))
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc  func(ctx context.Context, sess *session.Session, in services.LoginInput) error
	LogoutFunc func(ctx context.Context, sess *session.Session, csrfToken, ip string) error
}

func (m *MockAuthService) Login(ctx context.Context, sess *session.Session, in services.LoginInput) error {
	if m.LoginFunc == nil {
		return nil
	}
	return m.LoginFunc(ctx, sess, in)
}

func (m *MockAuthService) Logout(ctx context.Context, sess *session.Session, csrfToken, ip string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, sess, csrfToken, ip)
}

// MockSessionValidator implements SessionValidator for testing
type MockSessionValidator struct {
	Authenticated bool
	Calls         int
}

func (m *MockSessionValidator) Validate(s *session.Session, fingerprint string) bool {
	m.Calls++
	return m.Authenticated
}

// AuthenticatedSession returns a session record as left by a successful login.
func AuthenticatedSession() *session.Session {
	sess := &session.Session{}
	sess.Update(func(r *session.Record) {
		r.Authenticated = true
		r.Username = "alice"
	})
	return sess
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
