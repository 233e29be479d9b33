package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type windowCount struct {
	slot  int64
	count int
}

// FixedWindowLimiter counts requests per key in fixed time windows aligned to the epoch.
// Counters live in process memory and are not shared between instances.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*windowCount
	sweeps   int
}

// sweepEvery is the number of Take calls between purges of stale windows.
const sweepEvery = 1024

// NewFixedWindowLimiter creates an in-memory fixed window limiter.
func NewFixedWindowLimiter(limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &FixedWindowLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*windowCount),
	}, nil
}

// Take implements Limiter.
func (l *FixedWindowLimiter) Take(_ context.Context, key string) (Decision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	now := l.now()
	slot, retryAfter := windowSlot(now, l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweeps++
	if l.sweeps >= sweepEvery {
		l.sweeps = 0
		for k, c := range l.counters {
			if c.slot < slot {
				delete(l.counters, k)
			}
		}
	}

	c, ok := l.counters[key]
	if !ok || c.slot != slot {
		c = &windowCount{slot: slot}
		l.counters[key] = c
	}
	c.count++

	return decide(c.count, l.limit, retryAfter), nil
}

// windowSlot returns the index of the window containing now and the time left in it.
func windowSlot(now time.Time, window time.Duration) (int64, time.Duration) {
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	ms := now.UTC().UnixMilli()
	slot := ms / windowMs
	left := time.Duration((slot+1)*windowMs-ms) * time.Millisecond
	return slot, left
}

func decide(count, limit int, retryAfter time.Duration) Decision {
	if count > limit {
		return Decision{Limit: limit, RetryAfter: retryAfter}
	}
	return Decision{Allowed: true, Limit: limit, Remaining: limit - count}
}
