package admin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CSRFTTL is how long an issued anti-forgery token stays valid.
const CSRFTTL = 15 * time.Minute

// CSRFStore issues login anti-forgery tokens and remembers them until expiry.
type CSRFStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewCSRFStore() *CSRFStore {
	return &CSRFStore{tokens: make(map[string]time.Time), ttl: CSRFTTL, now: time.Now}
}

// Issue creates a fresh token and returns it with its expiry.
func (s *CSRFStore) Issue() (string, time.Time) {
	token := uuid.NewString()
	expires := s.now().Add(s.ttl)
	s.mu.Lock()
	s.tokens[token] = expires
	s.mu.Unlock()
	return token, expires
}

// Validate checks that the cookie and body tokens are equal and that the
// token was issued here and has not expired.
func (s *CSRFStore) Validate(cookie, body string) bool {
	if cookie == "" || body == "" || cookie != body {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.tokens[cookie]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.tokens, cookie)
		return false
	}
	return true
}

// Sweep drops expired tokens and returns how many were removed.
func (s *CSRFStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, expires := range s.tokens {
		if !now.Before(expires) {
			delete(s.tokens, token)
			n++
		}
	}
	return n
}

func (s *CSRFStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
