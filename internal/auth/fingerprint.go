package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the client fingerprint bound to a session at login.
// It is the SHA-256 of the User-Agent header; an empty header still hashes.
func Fingerprint(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}
