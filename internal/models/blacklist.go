package models

import "time"

// BlacklistThreshold is the post-increment failure count at which an IP is blacklisted.
const BlacklistThreshold = 3

// BlacklistWindow is how long a blacklist flag (and a ledger row) stays live after LastEvent.
const BlacklistWindow = 72 * time.Hour

// BlacklistEntry is one row of the failed-login ledger, keyed by IP address.
type BlacklistEntry struct {
	IPAddress     string    `db:"ip_address"`
	LoginAttempts int       `db:"login_attempts"`
	Blacklisted   bool      `db:"blacklisted"`
	LastEvent     time.Time `db:"last_event"`

	// Transitioned is set by RecordFailure when this failure flipped the flag on.
	Transitioned bool `db:"-"`
}

// Active reports whether the entry blocks traffic at now.
func (e *BlacklistEntry) Active(now time.Time) bool {
	return e.Blacklisted && now.Sub(e.LastEvent) <= BlacklistWindow
}
