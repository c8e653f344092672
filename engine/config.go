package engine

import (
	"sync"
	"time"

	"github.com/docker/go-units"
)

// config default values.
const (
	defaultPoolCapacity      = 10
	defaultBulkSize          = 10000
	defaultSpillThreshold    = 100 * 1024 * 1024 // 100 MiB
	defaultPreparedCacheSize = 100
	defaultMetadataCacheSize = 256
	defaultMetadataTTL       = 5 * time.Minute
	defaultTimeout           = 30 * time.Second
)

// minimal values.
const (
	minPoolCapacity      = 1
	minPreparedCacheSize = 1
	minMetadataCacheSize = 1
)

// Config holds the engine's tunable runtime attributes, mirroring the
// call-level driver's own connection-attribute pattern: RWMutex-guarded
// fields with getter/setter pairs and a constructor seeding defaults.
type Config struct {
	mu sync.RWMutex

	_poolCapacity      int
	_bulkSize          int
	_spillThreshold    int64
	_preparedCacheSize int
	_metadataCacheSize int
	_metadataTTL       time.Duration
	_timeout           time.Duration
}

// NewConfig returns a Config seeded with package defaults.
func NewConfig() *Config {
	return &Config{
		_poolCapacity:      defaultPoolCapacity,
		_bulkSize:          defaultBulkSize,
		_spillThreshold:    defaultSpillThreshold,
		_preparedCacheSize: defaultPreparedCacheSize,
		_metadataCacheSize: defaultMetadataCacheSize,
		_metadataTTL:       defaultMetadataTTL,
		_timeout:           defaultTimeout,
	}
}

func (c *Config) PoolCapacity() int { c.mu.RLock(); defer c.mu.RUnlock(); return c._poolCapacity }
func (c *Config) SetPoolCapacity(n int) {
	if n < minPoolCapacity {
		n = minPoolCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c._poolCapacity = n
}

func (c *Config) BulkSize() int { c.mu.RLock(); defer c.mu.RUnlock(); return c._bulkSize }
func (c *Config) SetBulkSize(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c._bulkSize = n
}

func (c *Config) SpillThreshold() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c._spillThreshold
}
func (c *Config) SetSpillThreshold(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c._spillThreshold = n
}

// SetSpillThresholdString parses a human-readable size ("100MiB", "1GB")
// via units.RAMInBytes, the same helper an ops-facing config loader would
// use for a threshold expressed in an environment variable.
func (c *Config) SetSpillThresholdString(s string) error {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return err
	}
	c.SetSpillThreshold(n)
	return nil
}

func (c *Config) PreparedCacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c._preparedCacheSize
}
func (c *Config) SetPreparedCacheSize(n int) {
	if n < minPreparedCacheSize {
		n = minPreparedCacheSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c._preparedCacheSize = n
}

func (c *Config) MetadataCacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c._metadataCacheSize
}
func (c *Config) SetMetadataCacheSize(n int) {
	if n < minMetadataCacheSize {
		n = minMetadataCacheSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c._metadataCacheSize = n
}

func (c *Config) MetadataTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c._metadataTTL
}
func (c *Config) SetMetadataTTL(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c._metadataTTL = d
}

func (c *Config) Timeout() time.Duration { c.mu.RLock(); defer c.mu.RUnlock(); return c._timeout }
func (c *Config) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c._timeout = d
}
