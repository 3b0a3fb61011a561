package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
	maxHits int
	now     func() time.Time
}

func NewMemoryLimiter(window time.Duration, maxHits int) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.maxHits <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	b, exists := l.buckets[key]
	if !exists {
		every := rate.Every(l.window / time.Duration(l.maxHits))
		b = &bucket{limiter: rate.NewLimiter(every, l.maxHits)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1), nil
}

// evict drops buckets idle for longer than two windows; a refilled bucket
// is indistinguishable from a fresh one
func (l *MemoryLimiter) evict(now time.Time) {
	cutoff := now.Add(-2 * l.window)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Counter increments a shared counter that expires after window
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowLimiter is a fixed-window limiter over a shared Counter, so limits
// hold across gateway replicas
type WindowLimiter struct {
	counter Counter
	prefix  string
	window  time.Duration
	maxHits int
	now     func() time.Time
}

func NewWindowLimiter(counter Counter, prefix string, window time.Duration, maxHits int) *WindowLimiter {
	return &WindowLimiter{
		counter: counter,
		prefix:  prefix,
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.maxHits <= 0 {
		return false, nil
	}

	slot := l.now().UnixNano() / int64(l.window)
	count, err := l.counter.IncrWindow(ctx, fmt.Sprintf("%s:%s:%d", l.prefix, key, slot), l.window)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return count <= int64(l.maxHits), nil
}
