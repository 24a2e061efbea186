package aldes

import (
	"sync"
	"time"
)

// responseCache holds API responses for a fixed period, so frequent callers
// don't hammer the vendor API. Expired entries are kept around: getStale
// serves them as a fallback when a refresh fails.
type responseCache struct {
	ttl     time.Duration
	lock    sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	products []Product
	storedAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(key string) ([]Product, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	entry, ok := c.entries[key]
	if !ok || time.Since(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.products, true
}

// getStale returns the entry for key regardless of its age, along with how
// long ago it was stored.
func (c *responseCache) getStale(key string) ([]Product, time.Duration, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	return entry.products, time.Since(entry.storedAt), true
}

func (c *responseCache) put(key string, products []Product) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries[key] = cacheEntry{products: products, storedAt: time.Now()}
}
