package session

import "time"

// Record is everything the application keeps per visitor. A zero Record is
// the anonymous default.
type Record struct {
	Authenticated bool      `json:"authenticated,omitempty"`
	Username      string    `json:"username,omitempty"`
	IsAdmin       bool      `json:"is_admin,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	CSRFToken     string    `json:"csrf_token,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	Messages      []string  `json:"messages,omitempty"`
}
