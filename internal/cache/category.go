package cache

import (
	"slices"
	"sync"

	"gopress/internal/content"
)

// Entry is what has been fetched so far for one filter key.
type Entry struct {
	Key   content.FilterKey
	Posts []content.Post
	// Page is the last page fetched successfully, starting at 1.
	Page      int
	Exhausted bool
}

// HasMore reports whether another page may exist.
func (e Entry) HasMore() bool {
	return !e.Exhausted
}

func (e Entry) clone() Entry {
	e.Posts = slices.Clone(e.Posts)
	return e
}

// CategoryCache maps filter keys to their accumulated listing. Entries are
// never evicted; a session owns one cache for its whole lifetime.
type CategoryCache struct {
	mu      sync.RWMutex
	entries map[content.FilterKey]*Entry
}

// NewCategoryCache creates an empty cache.
func NewCategoryCache() *CategoryCache {
	return &CategoryCache{
		entries: make(map[content.FilterKey]*Entry),
	}
}

// Get returns a copy of the entry for key.
func (c *CategoryCache) Get(key content.FilterKey) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Has reports whether key has an entry.
func (c *CategoryCache) Has(key content.FilterKey) bool {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	return ok
}

// Put stores a first-page entry for key, replacing any previous one only if
// it does not move Page backwards.
func (c *CategoryCache) Put(key content.FilterKey, e Entry) {
	e = normalize(key, e)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[key]; ok && cur.Page > e.Page {
		return
	}
	c.entries[key] = &e
}

// PutIfAbsent stores e unless key already has an entry, and returns the entry
// now in the cache together with whether e was stored.
func (c *CategoryCache) PutIfAbsent(key content.FilterKey, e Entry) (Entry, bool) {
	e = normalize(key, e)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[key]; ok {
		return cur.clone(), false
	}
	c.entries[key] = &e
	return e.clone(), true
}

// Append adds page newPage to key's entry. It is applied only when newPage
// directly follows the cached page and the entry is not exhausted, so
// duplicate or out-of-order completions cannot corrupt the listing.
func (c *CategoryCache) Append(key content.FilterKey, more []content.Post, newPage int, stillHasMore bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok || cur.Exhausted || newPage != cur.Page+1 {
		return false
	}

	cur.Posts = append(cur.Posts, more...)
	cur.Page = newPage
	cur.Exhausted = !stillHasMore
	return true
}

// Len returns the number of cached keys.
func (c *CategoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in ascending order.
func (c *CategoryCache) Keys() []content.FilterKey {
	c.mu.RLock()
	keys := make([]content.FilterKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

func normalize(key content.FilterKey, e Entry) Entry {
	e.Key = key
	e.Posts = slices.Clone(e.Posts)
	if e.Page < 1 {
		e.Page = 1
	}
	return e
}
