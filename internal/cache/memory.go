package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the hot tier: generation output and encoded embedding
// vectors held in process memory, evicted by TTL. Payloads are small strings
// of model output or JSON vectors, so no size bound is enforced.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache. Entries written without an explicit
// TTL expire after defaultTTL; expired entries are swept every
// cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns the payload stored under a hashed cache key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	return val.([]byte), true
}

// Set stores a payload. A non-positive ttl falls back to the default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.entries.Set(key, value, ttl)
	return nil
}

// Delete removes one entry.
func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}
