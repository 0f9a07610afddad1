package ratelimit

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrUnknownBackend = errors.New("ratelimit: unknown backend")

// Window is the state of one counter after a hit.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Store keeps fixed-window counters and lockouts keyed by caller.
type Store interface {
	// Hit increments the counter for key, starting a fresh window when the
	// previous one has elapsed.
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
	Reset(ctx context.Context, key string) error
	Block(ctx context.Context, key string, until time.Time) error
	// BlockedUntil returns the zero time when key is not blocked.
	BlockedUntil(ctx context.Context, key string) (time.Time, error)
}

// Sweepable is implemented by stores that hold expired entries in memory.
type Sweepable interface {
	Sweep(now time.Time) int
}

type Config struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
}

func ConfigFromEnv() Config {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_BACKEND")))
	if backend == "" {
		backend = "memory"
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return Config{
		Backend:       backend,
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       db,
		Prefix:        "assessment:rl:",
	}
}

type entry struct {
	count   int
	resetAt time.Time
	blocked time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry), now: time.Now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	if !now.Before(e.resetAt) {
		e.count = 0
		e.resetAt = now.Add(window)
	}
	e.count++
	return Window{Count: e.count, ResetAt: e.resetAt}, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.count = 0
		e.resetAt = time.Time{}
		if e.blocked.IsZero() {
			delete(s.entries, key)
		}
	}
	return nil
}

func (s *MemoryStore) Block(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.blocked = until
	return nil
}

func (s *MemoryStore) BlockedUntil(_ context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.blocked) {
		return time.Time{}, nil
	}
	return e.blocked, nil
}

// Sweep drops entries whose window and block have both elapsed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.resetAt) && !now.Before(e.blocked) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
