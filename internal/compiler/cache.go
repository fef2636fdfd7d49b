package compiler

import (
	"sync"
)

// Cache is an in-memory artifact cache keyed by source content hash.
// Compilation is pure, so a hit can be returned without revalidation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Result
	stats   CacheStats
}

// CacheStats tracks cache performance counters.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Get returns the cached result for a content hash.
func (c *Cache) Get(hash string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[hash]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return result, ok
}

// Put stores a compilation result.
func (c *Cache) Put(hash string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = result
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

// Clear removes all entries, for test isolation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Result)
	c.stats = CacheStats{}
}
