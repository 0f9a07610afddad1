package ratelimit

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = c.now
	return s, c
}

func TestLimiterAllowsMaxPerWindow(t *testing.T) {
	store, clk := newTestStore()
	l := NewLimiter(store, 3, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
	}
	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 15*time.Minute, d.RetryAfter(clk.now()))

	// other keys are independent
	d, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, d.Allowed)

	clk.advance(15 * time.Minute)
	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestDecisionRetryAfterRoundsUp(t *testing.T) {
	now := time.Now()
	d := Decision{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2*time.Second, d.RetryAfter(now))
	assert.Equal(t, time.Second, Decision{ResetAt: now.Add(-time.Minute)}.RetryAfter(now))
}

func TestBruteForceGuard(t *testing.T) {
	store, clk := newTestStore()
	g := NewBruteForceGuard(store)
	g.now = clk.now
	ctx := context.Background()

	for want := 4; want >= 1; want-- {
		remaining, until, err := g.Fail(ctx, "ip")
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
		assert.True(t, until.IsZero())
	}
	_, blocked, err := g.Check(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, blocked)

	remaining, until, err := g.Fail(ctx, "ip")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, clk.now().Add(30*time.Minute), until)

	got, blocked, err := g.Check(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, until, got)

	clk.advance(30 * time.Minute)
	_, blocked, _ = g.Check(ctx, "ip")
	assert.False(t, blocked)

	// counter restarts from zero after the block
	remaining, _, _ = g.Fail(ctx, "ip")
	assert.Equal(t, 4, remaining)
}

func TestBruteForceGuardSucceedResets(t *testing.T) {
	store, clk := newTestStore()
	g := NewBruteForceGuard(store)
	g.now = clk.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, _ = g.Fail(ctx, "ip")
	}
	require.NoError(t, g.Succeed(ctx, "ip"))
	remaining, _, _ := g.Fail(ctx, "ip")
	assert.Equal(t, 4, remaining)
}

func TestBruteForceWindowExpires(t *testing.T) {
	store, clk := newTestStore()
	g := NewBruteForceGuard(store)
	g.now = clk.now
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _, _ = g.Fail(ctx, "ip")
	}
	clk.advance(16 * time.Minute)
	remaining, until, _ := g.Fail(ctx, "ip")
	assert.Equal(t, 4, remaining)
	assert.True(t, until.IsZero())
}

func TestMemoryStoreSweep(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()
	_, _ = store.Hit(ctx, "a", time.Minute)
	_, _ = store.Hit(ctx, "b", time.Hour)
	require.NoError(t, store.Block(ctx, "c", clk.now().Add(2*time.Minute)))

	clk.advance(90 * time.Second)
	assert.Equal(t, 1, store.Sweep(clk.now()))
	assert.Equal(t, 2, store.Len())

	clk.advance(time.Hour)
	sw, err := NewSweeper(DefaultSweepSpec, nil, store)
	require.NoError(t, err)
	assert.Equal(t, 2, sw.RunOnce(clk.now()))
	assert.Equal(t, 0, store.Len())
}

func TestNewSweeperRejectsBadSpec(t *testing.T) {
	_, err := NewSweeper("every now and then", nil)
	assert.Error(t, err)
}

func TestSweeperStartStop(t *testing.T) {
	sw, err := NewSweeper(DefaultSweepSpec, nil, NewMemoryStore())
	require.NoError(t, err)
	sw.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sw.Stop(ctx)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(context.Background(), Config{Backend: "etcd"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_BACKEND", " Redis ")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "2")
	cfg := ConfigFromEnv()
	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, Config{RedisAddr: addr})
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisStore(client, "assessment:test:"+time.Now().Format("150405.000")+":")
	l := NewLimiter(s, 2, time.Minute)
	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	until := time.Now().Add(time.Minute).Truncate(time.Millisecond)
	require.NoError(t, s.Block(ctx, "k", until))
	got, err := s.BlockedUntil(ctx, "k")
	require.NoError(t, err)
	assert.True(t, until.Equal(got))
	require.NoError(t, s.Reset(ctx, "k"))
}
