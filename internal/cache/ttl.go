package cache

import (
	"sync"
	"time"
)

// TTL is a simple in-memory cache whose entries expire after a fixed duration.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]cachedEntry[V]
	ttl   time.Duration
	now   func() time.Time

	onEvict func(K, V)
}

// cachedEntry stores value and timestamp.
type cachedEntry[V any] struct {
	Value     V
	Timestamp time.Time
}

// NewTTL creates a new TTL cache.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		items: make(map[K]cachedEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// OnEvict registers fn to run, outside the lock, for every entry dropped
// because it expired. Explicit Delete calls do not trigger it.
func (c *TTL[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns value and true if present and fresh.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		// stale
		c.mu.Lock()
		evicted := false
		if cur, ok := c.items[key]; ok && cur.Timestamp.Equal(entry.Timestamp) {
			delete(c.items, key)
			evicted = true
		}
		fn := c.onEvict
		c.mu.Unlock()
		if evicted && fn != nil {
			fn(key, entry.Value)
		}
		return zero, false
	}
	return entry.Value, true
}

// Touch refreshes the timestamp of a live entry.
func (c *TTL[K, V]) Touch(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok || c.now().Sub(entry.Timestamp) > c.ttl {
		return false
	}
	entry.Timestamp = c.now()
	c.items[key] = entry
	return true
}

// Set inserts or updates key.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = cachedEntry[V]{Value: value, Timestamp: c.now()}
	c.mu.Unlock()
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Size returns current number of items.
func (c *TTL[K, V]) Size() int {
	c.mu.RLock()
	sz := len(c.items)
	c.mu.RUnlock()
	return sz
}

// Values returns the live values in no particular order.
func (c *TTL[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make([]V, 0, len(c.items))
	for _, e := range c.items {
		if now.Sub(e.Timestamp) <= c.ttl {
			out = append(out, e.Value)
		}
	}
	return out
}

// Cleanup removes stale entries and returns how many were dropped.
func (c *TTL[K, V]) Cleanup() int {
	c.mu.Lock()
	now := c.now()
	var evicted []cachedEntry[V]
	var keys []K
	for k, e := range c.items {
		if now.Sub(e.Timestamp) > c.ttl {
			delete(c.items, k)
			keys = append(keys, k)
			evicted = append(evicted, e)
		}
	}
	fn := c.onEvict
	c.mu.Unlock()

	if fn != nil {
		for i, k := range keys {
			fn(k, evicted[i].Value)
		}
	}
	return len(keys)
}
