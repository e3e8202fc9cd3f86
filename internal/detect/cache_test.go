package detect

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := newResultCache(5*time.Second, 4)
	now := time.Now()
	res := &DetectionResult{Flagged: true, OverallConfidence: 0.7}

	c.put(42, res, now)
	got, ok := c.get(42, now.Add(time.Second))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != res {
		t.Error("cache returned a different result")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := newResultCache(5*time.Second, 4)
	now := time.Now()
	c.put(42, &DetectionResult{}, now)

	if _, ok := c.get(42, now.Add(6*time.Second)); ok {
		t.Error("expected miss after TTL")
	}
	if c.len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", c.len())
	}
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	c := newResultCache(time.Minute, 2)
	now := time.Now()
	c.put(1, &DetectionResult{}, now)
	c.put(2, &DetectionResult{}, now.Add(time.Second))
	c.put(3, &DetectionResult{}, now.Add(2*time.Second))

	if c.len() != 2 {
		t.Fatalf("len = %d, want 2", c.len())
	}
	if _, ok := c.get(1, now.Add(3*time.Second)); ok {
		t.Error("oldest entry survived capacity eviction")
	}
	if _, ok := c.get(3, now.Add(3*time.Second)); !ok {
		t.Error("newest entry missing")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := newResultCache(time.Minute, 4)
	now := time.Now()
	c.put(1, &DetectionResult{}, now)
	c.put(2, &DetectionResult{}, now)

	c.invalidateAll()
	if c.len() != 0 {
		t.Errorf("len = %d after invalidateAll, want 0", c.len())
	}
}

func TestCacheZeroConfigUsesDefaults(t *testing.T) {
	c := newResultCache(0, 0)
	if c.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultCacheTTL)
	}
	if c.capacity != DefaultCacheCapacity {
		t.Errorf("capacity = %d, want %d", c.capacity, DefaultCacheCapacity)
	}
}
