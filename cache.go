package treefs

import (
	"container/list"
	"sync"
)

// lruCache is a thread-safe fixed-capacity LRU map.
//
// Both users memoize pure functions (path sanitization, fill-buffer
// materialization), so the cache is purely a cost-control device:
// eviction can never produce a wrong answer, only a recomputation.
//
// A doubly-linked list provides O(1) recency updates and a map O(1)
// lookups; every critical section is O(1).
type lruCache struct {
	mu        sync.Mutex
	maxSize   int
	items     map[string]*list.Element
	lruList   *list.List
	hits      uint64
	misses    uint64
	evictions uint64
}

// lruEntry is a single cache entry.
type lruEntry struct {
	key   string
	value interface{}
}

// newLRUCache creates an LRU cache holding at most maxSize entries.
func newLRUCache(maxSize int) *lruCache {
	return &lruCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lruList: list.New(),
	}
}

// Get retrieves a value from the cache.
// Returns (value, true) if present, (nil, false) otherwise.
func (c *lruCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	c.hits++
	return elem.Value.(*lruEntry).value, true
}

// Put adds or refreshes a value in the cache, evicting the least
// recently used entry when over capacity.
func (c *lruCache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		elem.Value.(*lruEntry).value = value
		c.lruList.MoveToFront(elem)
		return
	}

	elem := c.lruList.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = elem

	if c.maxSize > 0 && c.lruList.Len() > c.maxSize {
		c.evictOldest()
	}
}

// Len returns the current number of entries in the cache.
func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Stats returns cache performance counters.
func (c *lruCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Size:      c.lruList.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

// evictOldest removes the least recently used entry (lock held).
func (c *lruCache) evictOldest() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}
	c.lruList.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).key)
	c.evictions++
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Size      int     // Current number of entries
	MaxSize   int     // Maximum number of entries
	Hits      uint64  // Number of cache hits
	Misses    uint64  // Number of cache misses
	Evictions uint64  // Number of evictions
	HitRate   float64 // Hit rate (hits / (hits + misses))
}
