package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore shares counters between instances. Windows are kept with
// INCR and PEXPIRE; blocks are a key holding the unix-millis deadline.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects and pings the configured server.
func DialRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}
	return client, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) countKey(key string) string { return s.prefix + "n:" + key }
func (s *RedisStore) blockKey(key string) string { return s.prefix + "b:" + key }

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	k := s.countKey(key)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	remaining := ttl.Val()
	// first hit in the window, or a key left without expiry
	if incr.Val() == 1 || remaining < 0 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return Window{}, fmt.Errorf("ratelimit: redis expire: %w", err)
		}
		remaining = window
	}
	return Window{Count: int(incr.Val()), ResetAt: time.Now().Add(remaining)}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.countKey(key)).Err()
}

func (s *RedisStore) Block(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.blockKey(key), strconv.FormatInt(until.UnixMilli(), 10), ttl).Err()
}

func (s *RedisStore) BlockedUntil(ctx context.Context, key string) (time.Time, error) {
	v, err := s.client.Get(ctx, s.blockKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("ratelimit: redis get block: %w", err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("ratelimit: malformed block value: %w", err)
	}
	until := time.UnixMilli(ms)
	if !time.Now().Before(until) {
		return time.Time{}, nil
	}
	return until, nil
}

// NewStore builds the Store named by cfg.Backend.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := DialRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
