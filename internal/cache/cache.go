package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for caching API lookups.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}

// KnowledgeKey builds the cache key for a claim's knowledge artifacts.
func KnowledgeKey(claimID string) string {
	return "knowledge:" + strings.TrimSpace(claimID)
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) (any, bool) { return c.cache.Get(key) }

// Set stores value; a zero ttl uses the cache default.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

func (c *MemoryCache) Delete(key string) { c.cache.Delete(key) }
func (c *MemoryCache) Clear()            { c.cache.Flush() }

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(string) (any, bool)         { return nil, false }
func (Noop) Set(string, any, time.Duration) {}
func (Noop) Delete(string)                  {}
func (Noop) Clear()                         {}
