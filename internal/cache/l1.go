package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// L1 defaults.
const (
	DefaultL1MaxEntries      = 4096
	DefaultL1TTL             = 2 * time.Hour
	DefaultL1CleanupInterval = 10 * time.Minute
)

// l1Entry is one cached value with its expiry and generation stamp.
type l1Entry struct {
	value      any
	storedAt   int64 // unix nano
	generation int64
}

// L1 is the lock-free in-process tier: a sync.Map with per-entry TTL and
// atomic hit/miss counters. Entries are evicted lazily on read and by a
// periodic sweep; the bound is approximate, which is fine for a tier whose
// job is sub-second reuse within one analysis pass.
type L1 struct {
	entries sync.Map // string -> *l1Entry

	maxEntries int
	ttlNanos   int64

	hits      int64
	misses    int64
	evictions int64
	count     int64

	stop chan struct{}
	once sync.Once
}

// NewL1 creates the in-process tier and starts its cleanup sweep.
func NewL1(maxEntries int, ttl time.Duration) *L1 {
	if maxEntries <= 0 {
		maxEntries = DefaultL1MaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultL1TTL
	}
	c := &L1{
		maxEntries: maxEntries,
		ttlNanos:   ttl.Nanoseconds(),
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop(DefaultL1CleanupInterval)
	return c
}

// Get returns the cached value if present, unexpired, and stamped with the
// given generation.
func (c *L1) Get(key string, generation int64) (any, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	e := v.(*l1Entry)
	if time.Now().UnixNano()-e.storedAt > c.ttlNanos || e.generation != generation {
		c.entries.Delete(key)
		atomic.AddInt64(&c.count, -1)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Set stores a value under the current generation. When over the bound, one
// sweep of expired entries runs first; if still over, the write proceeds
// anyway. The periodic sweep also removes only expired entries, so the count
// stays above the bound until enough entries expire.
func (c *L1) Set(key string, value any, generation int64) {
	if atomic.LoadInt64(&c.count) >= int64(c.maxEntries) {
		c.sweep()
	}
	_, loaded := c.entries.Swap(key, &l1Entry{
		value:      value,
		storedAt:   time.Now().UnixNano(),
		generation: generation,
	})
	if !loaded {
		atomic.AddInt64(&c.count, 1)
	}
}

// Delete removes a key.
func (c *L1) Delete(key string) {
	if _, loaded := c.entries.LoadAndDelete(key); loaded {
		atomic.AddInt64(&c.count, -1)
	}
}

// DeletePrefix removes every key with the given prefix.
func (c *L1) DeletePrefix(prefix string) {
	c.entries.Range(func(k, _ any) bool {
		if key := k.(string); len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.Delete(key)
		}
		return true
	})
}

// Clear drops every entry.
func (c *L1) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.Delete(k.(string))
		return true
	})
}

// Stats returns hit/miss/eviction counters.
func (c *L1) Stats() (hits, misses, evictions, count int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses),
		atomic.LoadInt64(&c.evictions), atomic.LoadInt64(&c.count)
}

// Close stops the cleanup sweep.
func (c *L1) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *L1) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries.
func (c *L1) sweep() {
	now := time.Now().UnixNano()
	c.entries.Range(func(k, v any) bool {
		e := v.(*l1Entry)
		if now-e.storedAt > c.ttlNanos {
			if _, loaded := c.entries.LoadAndDelete(k); loaded {
				atomic.AddInt64(&c.count, -1)
				atomic.AddInt64(&c.evictions, 1)
			}
		}
		return true
	})
}
