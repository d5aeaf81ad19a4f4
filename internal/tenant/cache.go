package tenant

import (
	"container/list"
	"sync"
	"time"

	"github.com/numgate/numgate-server/internal/models"
)

// Cache is a bounded LRU cache mapping a normalized hostname to a resolved
// tenant snapshot. Entries expire after a fixed TTL measured from insertion,
// checked lazily on read. One instance lives for the process lifetime and is
// shared by all in-flight requests.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration

	ll    *list.List
	items map[string]*list.Element

	now func() time.Time
}

type cacheEntry struct {
	host       string
	tenant     *models.Tenant
	insertedAt time.Time
}

// NewCache creates a new tenant resolution cache
func NewCache(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the cached tenant for a hostname. An expired entry is treated
// as a miss and removed; a hit moves the entry to the most-recently-used
// position.
func (c *Cache) Get(host string) (*models.Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[host]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.ll.Remove(el)
		delete(c.items, host)
		return nil, false
	}

	c.ll.MoveToFront(el)
	return entry.tenant, true
}

// Put stores a tenant snapshot for a hostname. An existing entry is replaced
// and moved to the most-recently-used position; at capacity the
// least-recently-used entry is evicted first.
func (c *Cache) Put(host string, tenant *models.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[host]; ok {
		c.ll.Remove(el)
		delete(c.items, host)
	}

	if c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).host)
		}
	}

	c.items[host] = c.ll.PushFront(&cacheEntry{
		host:       host,
		tenant:     tenant,
		insertedAt: c.now(),
	})
}

// Invalidate removes a single hostname from the cache
func (c *Cache) Invalidate(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[host]; ok {
		c.ll.Remove(el)
		delete(c.items, host)
	}
}

// InvalidateAll clears the cache. Called after any operation that changes
// the domain-to-tenant mapping (claim, add, delete, verify).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// Len returns the number of cached entries, expired or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
