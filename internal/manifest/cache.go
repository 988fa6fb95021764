package manifest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/firndb/firn/internal/storage"
)

// DefaultCacheEntries bounds the cache when no size is given.
const DefaultCacheEntries = 64

// Cache is a bounded in-memory cache of decoded manifests keyed by
// location. Stored manifests are write-once, so cached entries never go
// stale; the bound only caps memory. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*cacheEntry
	clock      int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type cacheEntry struct {
	manifest *Manifest
	lastUsed int64
}

// NewCache creates a cache bounded to maxEntries decoded manifests.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

// Get returns the cached manifest for location. Callers must treat the
// result as read-only.
func (c *Cache) Get(location string) (*Manifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[location]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.clock++
	e.lastUsed = c.clock
	return e.manifest, true
}

// Put adds a decoded manifest, evicting the least recently used entry
// when over capacity.
func (c *Cache) Put(location string, m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	if e, ok := c.entries[location]; ok {
		e.manifest = m
		e.lastUsed = c.clock
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[location] = &cacheEntry{manifest: m, lastUsed: c.clock}
}

// evictOldest drops the least recently used entry. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestUsed int64
	first := true
	for key, e := range c.entries {
		if first || e.lastUsed < oldestUsed {
			oldestKey = key
			oldestUsed = e.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}

// Remove drops the entry for location, if cached.
func (c *Cache) Remove(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, location)
}

// Len returns the number of cached manifests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Metrics returns cumulative hit, miss, and eviction counts.
func (c *Cache) Metrics() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// ReadThrough reads the manifest at location through the cache, fetching
// and decoding on a miss.
func (c *Cache) ReadThrough(ctx context.Context, store storage.ObjectStore, location string) (*Manifest, error) {
	if m, ok := c.Get(location); ok {
		return m, nil
	}
	m, err := Read(ctx, store, location)
	if err != nil {
		return nil, err
	}
	c.Put(location, m)
	return m, nil
}
