package auth_test

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCSRFToken(t *testing.T) {
	token, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	_, err = hex.DecodeString(token)
	assert.NoError(t, err)

	other, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidCSRFToken(t *testing.T) {
	token, err := auth.GenerateCSRFToken()
	require.NoError(t, err)

	assert.True(t, auth.ValidCSRFToken(token, token))
	assert.False(t, auth.ValidCSRFToken(token, token[:63]+"0"))
	assert.False(t, auth.ValidCSRFToken(token, ""))
	assert.False(t, auth.ValidCSRFToken("", ""))
	assert.False(t, auth.ValidCSRFToken("", token))
}

func TestFingerprint(t *testing.T) {
	a := auth.Fingerprint("Mozilla/5.0")
	assert.Len(t, a, 64)
	assert.Equal(t, a, auth.Fingerprint("Mozilla/5.0"))
	assert.NotEqual(t, a, auth.Fingerprint("curl/8.0"))
	assert.NotEmpty(t, auth.Fingerprint(""))
}

func TestSetSessionCookie_Attributes(t *testing.T) {
	cfg := auth.CookieConfig{Name: "vestibule_session", SameSite: "lax"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	auth.SetSessionCookie(w, r, "tok", cfg)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "vestibule_session", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Zero(t, c.MaxAge, "browser-session cookie")
	assert.True(t, c.Expires.IsZero())
}

func TestSetSessionCookie_SecureOverTLS(t *testing.T) {
	cfg := auth.CookieConfig{Name: "vestibule_session"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	auth.SetSessionCookie(w, r, "tok", cfg)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestClearSessionCookie(t *testing.T) {
	cfg := auth.CookieConfig{Name: "vestibule_session"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	auth.ClearSessionCookie(w, r, cfg)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestGetSessionCookie(t *testing.T) {
	cfg := auth.CookieConfig{Name: "vestibule_session"}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", auth.GetSessionCookie(r, cfg))

	r.AddCookie(&http.Cookie{Name: "vestibule_session", Value: "abc"})
	assert.Equal(t, "abc", auth.GetSessionCookie(r, cfg))
}
