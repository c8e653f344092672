package engine

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/odbcfast/engine/calldriver"
)

// ColumnSchema is one column entry of a cached table schema.
type ColumnSchema struct {
	Name     string
	TypeCode int
	Nullable bool
}

// TableSchema is a cached table-name → column-list mapping, stamped with
// its insertion time for TTL expiry.
type TableSchema struct {
	Columns  []ColumnSchema
	CachedAt time.Time
}

// MetadataCache is an LRU+TTL mapping of table name → TableSchema. Entries
// past TTL are treated as absent and evicted on read.
type MetadataCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, TableSchema]
	ttl time.Duration
}

// NewMetadataCache returns a cache with the given capacity (≥ 1) and TTL.
func NewMetadataCache(capacity int, ttl time.Duration) *MetadataCache {
	if capacity < 1 {
		capacity = 1
	}
	c, _ := lru.New[string, TableSchema](capacity)
	return &MetadataCache{lru: c, ttl: ttl}
}

// GetSchema returns the cached schema for table if present and fresh (age
// ≤ TTL); a stale entry is evicted and reported as absent.
func (c *MetadataCache) GetSchema(table string) (TableSchema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.lru.Get(table)
	if !ok {
		return TableSchema{}, false
	}
	if time.Since(s.CachedAt) > c.ttl {
		c.lru.Remove(table)
		return TableSchema{}, false
	}
	return s, true
}

// CacheSchema inserts or replaces the schema for table, evicting the LRU
// entry if the cache is full.
func (c *MetadataCache) CacheSchema(table string, columns []ColumnSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(table, TableSchema{Columns: columns, CachedAt: time.Now()})
}

// fromColumnDescriptors adapts the call-level driver's catalog shape into
// the cache's ColumnSchema.
func fromColumnDescriptors(cols []calldriver.ColumnDescriptor) []ColumnSchema {
	out := make([]ColumnSchema, len(cols))
	for i, c := range cols {
		out[i] = ColumnSchema{Name: c.Name, TypeCode: c.SQLType, Nullable: c.Nullable}
	}
	return out
}

// Len reports the number of schemas currently cached (including any not
// yet evicted despite being stale).
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
