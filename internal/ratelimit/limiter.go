package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to a second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	left := d.ResetAt.Sub(now)
	if left <= 0 {
		return time.Second
	}
	return (left + time.Second - 1) / time.Second * time.Second
}

// Limiter allows at most Max hits per key in each Window.
type Limiter struct {
	Store  Store
	Max    int
	Window time.Duration
}

func NewLimiter(store Store, max int, window time.Duration) *Limiter {
	return &Limiter{Store: store, Max: max, Window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	w, err := l.Store.Hit(ctx, key, l.Window)
	if err != nil {
		return Decision{}, err
	}
	remaining := l.Max - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.Count <= l.Max,
		Limit:     l.Max,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}

// BruteForceGuard counts failed attempts per key and blocks the key once
// MaxAttempts failures land inside one Window.
type BruteForceGuard struct {
	Store       Store
	MaxAttempts int
	Window      time.Duration
	Block       time.Duration
	now         func() time.Time
}

func NewBruteForceGuard(store Store) *BruteForceGuard {
	return &BruteForceGuard{
		Store:       store,
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Block:       30 * time.Minute,
		now:         time.Now,
	}
}

// Check returns the block deadline when key is currently blocked.
func (g *BruteForceGuard) Check(ctx context.Context, key string) (until time.Time, blocked bool, err error) {
	until, err = g.Store.BlockedUntil(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	return until, !until.IsZero(), nil
}

// Fail records a failed attempt. It returns the attempts left before a block
// and, when this failure triggered one, the block deadline.
func (g *BruteForceGuard) Fail(ctx context.Context, key string) (remaining int, blockedUntil time.Time, err error) {
	w, err := g.Store.Hit(ctx, key, g.Window)
	if err != nil {
		return 0, time.Time{}, err
	}
	if w.Count < g.MaxAttempts {
		return g.MaxAttempts - w.Count, time.Time{}, nil
	}
	blockedUntil = g.now().Add(g.Block)
	if err := g.Store.Block(ctx, key, blockedUntil); err != nil {
		return 0, time.Time{}, err
	}
	if err := g.Store.Reset(ctx, key); err != nil {
		return 0, time.Time{}, err
	}
	return 0, blockedUntil, nil
}

// Succeed clears the failure counter.
func (g *BruteForceGuard) Succeed(ctx context.Context, key string) error {
	return g.Store.Reset(ctx, key)
}
