package session

import (
	"sync"
	"time"

	"github.com/BradenHooton/vestibule/internal/auth"
)

// Session is the per-request view of a visitor's Record. Mutations are kept
// in memory and written to the store by Manager.Commit.
type Session struct {
	mu sync.Mutex

	token   string   // raw cookie value; "" until first commit
	retired []string // tokens whose records must be deleted on commit
	record  Record

	modified  bool
	destroyed bool
}

// Record returns a copy of the current record.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record
	rec.Messages = append([]string(nil), s.record.Messages...)
	return rec
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Authenticated
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Username
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.IsAdmin
}

func (s *Session) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.CSRFToken
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.LastActivity
}

// Update applies fn to the record and marks the session for saving.
func (s *Session) Update(fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.record)
	s.modified = true
}

// EnsureCSRFToken returns the session's CSRF token, issuing one if the
// record has none (first contact, or after Destroy).
func (s *Session) EnsureCSRFToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record.CSRFToken != "" {
		return s.record.CSRFToken, nil
	}

	token, err := auth.GenerateCSRFToken()
	if err != nil {
		return "", err
	}
	s.record.CSRFToken = token
	s.modified = true
	return token, nil
}

// AddFlash queues a one-shot message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.Update(func(r *Record) {
		r.Messages = append(r.Messages, msg)
	})
}

// PopFlashes drains the flash queue.
func (s *Session) PopFlashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.record.Messages) == 0 {
		return nil
	}
	msgs := s.record.Messages
	s.record.Messages = nil
	s.modified = true
	return msgs
}

// Destroy clears every field and retires the token. Reads after Destroy
// see defaults; the client's cookie is cleared on commit unless the session
// is written to again.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		s.retired = append(s.retired, s.token)
	}
	s.token = ""
	s.record = Record{}
	s.modified = false
	s.destroyed = true
}

// RegenerateID moves the record to a fresh token and retires the old one.
func (s *Session) RegenerateID() error {
	token, err := newToken()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		s.retired = append(s.retired, s.token)
	}
	s.token = token
	s.modified = true
	return nil
}

// Token returns the raw cookie token, "" when none has been issued yet.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
