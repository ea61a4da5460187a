package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// CSRFTokenBytes is the entropy of a CSRF token before hex encoding.
const CSRFTokenBytes = 32

// GenerateCSRFToken returns 32 random bytes, hex-encoded (64 characters).
func GenerateCSRFToken() (string, error) {
	randomBytes := make([]byte, CSRFTokenBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// ValidCSRFToken compares the session's token with the submitted one in
// constant time. An empty value on either side never matches.
func ValidCSRFToken(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
