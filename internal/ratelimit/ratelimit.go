// Package ratelimit provides the fixed-window counter guarding the
// authentication endpoints against brute force.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts attempts per identifier within a fixed window. It is a
// process-wide singleton; entries self-expire when their window passes and
// are swept lazily on later calls, at most once per cleanup interval.
type Limiter struct {
	mu sync.Mutex

	max             int
	window          time.Duration
	cleanupInterval time.Duration

	entries   map[string]*entry
	lastSweep time.Time

	now func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// New creates a new limiter allowing max attempts per window
func New(max int, window, cleanupInterval time.Duration) *Limiter {
	return &Limiter{
		max:             max,
		window:          window,
		cleanupInterval: cleanupInterval,
		entries:         make(map[string]*entry),
		now:             time.Now,
	}
}

// IsRateLimited records an attempt for an identifier and reports whether the
// identifier has exceeded its window budget. The first max calls within a
// window return false; later calls return true until the window resets.
func (l *Limiter) IsRateLimited(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	e, ok := l.entries[id]
	if !ok || !now.Before(e.resetAt) {
		l.entries[id] = &entry{count: 1, resetAt: now.Add(l.window)}
		return false
	}

	e.count++
	return e.count > l.max
}

// RetryAfter returns how long an identifier must wait before its window
// resets. Zero when the identifier is not currently limited.
func (l *Limiter) RetryAfter(id string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[id]
	if !ok || e.count <= l.max || !now.Before(e.resetAt) {
		return 0
	}
	return e.resetAt.Sub(now)
}

// Reset clears the counter for an identifier, e.g. after a successful login
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
}

// Len returns the number of tracked identifiers
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// maybeSweep deletes expired entries, at most once per cleanup interval.
// Caller must hold the lock.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cleanupInterval {
		return
	}
	l.lastSweep = now

	for id, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, id)
		}
	}
}
