package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is a process-local fixed-window counter. It is approximate:
// counts are not exact under simultaneous bursts and are not shared across
// instances. Records are evicted lazily on each admission check.
type MemoryLimiter struct {
	mu          sync.Mutex
	records     map[string]*record
	window      time.Duration
	maxRequests int
	now         func() time.Time
}

func NewMemoryLimiter(window time.Duration, maxRequests int) *MemoryLimiter {
	return &MemoryLimiter{
		records:     make(map[string]*record),
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
	}
}

// Allow implements Limiter. The window only resets on natural expiry, never
// on a denied request.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, r := range l.records {
		if now.Sub(r.windowStart) > l.window {
			delete(l.records, k)
		}
	}

	r, ok := l.records[key]
	if !ok || now.Sub(r.windowStart) > l.window {
		l.records[key] = &record{count: 1, windowStart: now}
		return Decision{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: now.Add(l.window)}, nil
	}

	r.count++
	resetAt := r.windowStart.Add(l.window)
	if r.count > l.maxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Remaining: l.maxRequests - r.count, ResetAt: resetAt}, nil
}

// tracked reports how many client keys currently hold a record.
func (l *MemoryLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
