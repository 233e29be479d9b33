package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// DefaultRedisPrefix namespaces limiter keys in Redis.
const DefaultRedisPrefix = "goodbooks:ratelimit"

// RedisFixedWindowLimiter limits requests per key in a fixed time window shared by every
// instance pointed at the same Redis.
type RedisFixedWindowLimiter struct {
	limit   int
	window  time.Duration
	timeout time.Duration
	now     func() time.Time

	client redis.UniversalClient
	prefix string
}

// RedisOptions configures a Redis-backed limiter.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Limit    int
	Window   time.Duration
}

// NewRedisFixedWindowLimiter creates a Redis-backed distributed limiter.
func NewRedisFixedWindowLimiter(opts RedisOptions) (*RedisFixedWindowLimiter, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	l, err := NewRedisFixedWindowLimiterWithClient(client, opts.Prefix, opts.Limit, opts.Window)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return l, nil
}

// NewRedisFixedWindowLimiterWithClient wraps an existing client.
func NewRedisFixedWindowLimiterWithClient(client redis.UniversalClient, prefix string, limit int, window time.Duration) (*RedisFixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisFixedWindowLimiter{
		limit:   limit,
		window:  window,
		timeout: 2 * time.Second,
		now:     time.Now,
		client:  client,
		prefix:  prefix,
	}, nil
}

// Take implements Limiter. Redis failures deny the request and return the error.
func (l *RedisFixedWindowLimiter) Take(ctx context.Context, key string) (Decision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	slot, retryAfter := windowSlot(l.now(), l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return Decision{Limit: l.limit, RetryAfter: retryAfter}, fmt.Errorf("redis rate limit: %w", err)
	}
	return decide(int(count), l.limit, retryAfter), nil
}

// Ping checks the Redis connection.
func (l *RedisFixedWindowLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *RedisFixedWindowLimiter) Close() error {
	return l.client.Close()
}
