package detect

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result    *DetectionResult
	createdAt time.Time
}

// resultCache is a small fixed-capacity fingerprint→result map. Entries
// expire after the TTL, checked lazily on read rather than by a background
// sweep; the expected live size is a few dozen entries at most.
type resultCache struct {
	mu       sync.RWMutex
	entries  map[uint64]cacheEntry
	ttl      time.Duration
	capacity int
}

func newResultCache(ttl time.Duration, capacity int) *resultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &resultCache{
		entries:  make(map[uint64]cacheEntry, capacity),
		ttl:      ttl,
		capacity: capacity,
	}
}

// get returns the cached result for key if present and fresh. Expired
// entries are evicted on touch.
func (c *resultCache) get(key uint64, now time.Time) (*DetectionResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now.Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent put may have refreshed it.
		if e2, ok2 := c.entries[key]; ok2 && now.Sub(e2.createdAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// put inserts a result, evicting the oldest entry when at capacity.
func (c *resultCache) put(key uint64, res *DetectionResult, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		var oldestKey uint64
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.createdAt.Before(oldestAt) {
				oldestKey, oldestAt = k, e.createdAt
				first = false
			}
		}
		if !first {
			delete(c.entries, oldestKey)
		}
	}
	c.entries[key] = cacheEntry{result: res, createdAt: now}
}

// invalidateAll drops every entry. Called on tier changes: tile granularity
// differs per tier, so stale entries would be inconsistent.
func (c *resultCache) invalidateAll() {
	c.mu.Lock()
	c.entries = make(map[uint64]cacheEntry, c.capacity)
	c.mu.Unlock()
}

func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
