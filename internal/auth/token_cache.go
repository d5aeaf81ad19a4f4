package auth

import (
	"container/list"
	"sync"
	"time"
)

// VerifyFunc verifies a raw token and returns its claims, or an error when
// the token is invalid.
type VerifyFunc func(rawToken string) (*Claims, error)

// TokenCache is a bounded LRU cache of verified token claims, avoiding
// repeated signature verification on hot request paths. Verification
// failures are never cached: a retried request with a newly-valid token must
// not be blocked by a stale negative entry.
type TokenCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration

	ll    *list.List
	items map[string]*list.Element

	sweepInterval time.Duration
	lastSweep     time.Time

	now func() time.Time
}

type tokenEntry struct {
	token     string
	claims    *Claims
	expiresAt time.Time
}

// NewTokenCache creates a new token cache
func NewTokenCache(capacity int, ttl, sweepInterval time.Duration) *TokenCache {
	return &TokenCache{
		capacity:      capacity,
		ttl:           ttl,
		ll:            list.New(),
		items:         make(map[string]*list.Element),
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// GetOrVerify returns the cached claims for a raw token, invoking verify on
// a miss. Returns nil when verification fails.
func (c *TokenCache) GetOrVerify(rawToken string, verify VerifyFunc) *Claims {
	c.mu.Lock()

	c.maybeSweep()

	if el, ok := c.items[rawToken]; ok {
		entry := el.Value.(*tokenEntry)
		if c.now().Before(entry.expiresAt) {
			c.ll.MoveToFront(el)
			c.mu.Unlock()
			return entry.claims
		}
		c.ll.Remove(el)
		delete(c.items, rawToken)
	}

	// Verify outside the lock: signature checks are the expensive part.
	c.mu.Unlock()

	claims, err := verify(rawToken)
	if err != nil || claims == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[rawToken]; ok {
		c.ll.Remove(el)
		delete(c.items, rawToken)
	}

	if c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*tokenEntry).token)
		}
	}

	c.items[rawToken] = c.ll.PushFront(&tokenEntry{
		token:     rawToken,
		claims:    claims,
		expiresAt: c.now().Add(c.ttl),
	})

	return claims
}

// Invalidate removes a single token from the cache
func (c *TokenCache) Invalidate(rawToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[rawToken]; ok {
		c.ll.Remove(el)
		delete(c.items, rawToken)
	}
}

// Len returns the number of cached entries
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// maybeSweep removes all expired entries, at most once per sweep interval.
// Sweep cost piggybacks on the next call rather than a background task.
// Caller must hold the lock.
func (c *TokenCache) maybeSweep() {
	now := c.now()
	if now.Sub(c.lastSweep) < c.sweepInterval {
		return
	}
	c.lastSweep = now

	for el := c.ll.Back(); el != nil; {
		prev := el.Prev()
		entry := el.Value.(*tokenEntry)
		if !now.Before(entry.expiresAt) {
			c.ll.Remove(el)
			delete(c.items, entry.token)
		}
		el = prev
	}
}
