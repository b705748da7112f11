package cache

import "time"

// memorySweepInterval is how often the memory tier evicts expired entries.
const memorySweepInterval = 10 * time.Minute

// New builds the cache for the configured TTL and optional disk directory.
// Without a directory the cache is memory only and does not survive restarts.
func New(dir string, ttl time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(ttl, memorySweepInterval)
	}
	return NewLayeredCache(ttl, dir, ttl)
}

// LayeredCache fronts the persistent disk tier with the memory tier. Reads
// check memory first and promote disk hits; writes land in both tiers.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a layered cache with separate memory and disk TTLs.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, memorySweepInterval),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get returns a payload from the fastest tier holding it. A disk hit is
// promoted into memory at the memory default TTL.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

// Set stores a payload in both tiers.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes an entry from both tiers.
func (c *LayeredCache) Delete(key string) error {
	if err := c.memory.Delete(key); err != nil {
		return err
	}
	return c.disk.Delete(key)
}

// Clear drops every entry from both tiers.
func (c *LayeredCache) Clear() error {
	if err := c.memory.Clear(); err != nil {
		return err
	}
	return c.disk.Clear()
}
