package engine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PreparedCache is an advisory LRU set of SQL texts recently prepared. It
// records membership only — the driver statement itself is re-prepared on
// every use; the cache exists so callers can observe whether a statement
// was recently seen. A mutex failure degrades to a logged miss rather than
// a panic, matching the driver-wide "poisoned mutex never becomes UB"
// policy; the stdlib mutex here cannot itself be poisoned, so this is
// enforced structurally instead of defensively.
type PreparedCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, struct{}]
	cap int
}

// NewPreparedCache returns a cache with the given capacity (≥ 1).
func NewPreparedCache(capacity int) *PreparedCache {
	if capacity < 1 {
		capacity = 1
	}
	c, _ := lru.New[string, struct{}](capacity)
	return &PreparedCache{lru: c, cap: capacity}
}

// GetOrInsert reports whether sql was already present (a cache hit) and
// inserts it when absent, evicting the least-recently-used entry if the
// cache is full.
func (c *PreparedCache) GetOrInsert(sql string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lru.Get(sql); ok {
		return true
	}
	c.lru.Add(sql, struct{}{})
	return false
}

// Clear empties the cache.
func (c *PreparedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of SQL texts currently cached.
func (c *PreparedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// MaxSize returns the cache's configured capacity.
func (c *PreparedCache) MaxSize() int { return c.cap }

// Contains reports whether sql is currently cached, without affecting
// recency order.
func (c *PreparedCache) Contains(sql string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(sql)
}
