package auth

import (
	"net/http"
	"time"
)

// CookieConfig holds session cookie settings
type CookieConfig struct {
	Name     string
	Domain   string // Empty string = current host only
	Secure   bool   // force Secure even on plain HTTP requests
	SameSite string // "strict", "lax", or "none"
}

func (c CookieConfig) secure(r *http.Request) bool {
	return c.Secure || (r != nil && r.TLS != nil)
}

// SetSessionCookie writes the session token cookie. It is a browser-session
// cookie, HttpOnly, and Secure whenever the request arrived over TLS.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     config.Name,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		HttpOnly: true,
		Secure:   config.secure(r),
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     config.Name,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   config.secure(r),
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie returns the token value or "" when the cookie is absent.
func GetSessionCookie(r *http.Request, config CookieConfig) string {
	cookie, err := r.Cookie(config.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
