// Package cache implements the two-tier byte cache: an in-process,
// byte-weighted LRU fronting a remote KV store, with pattern-indexed
// invalidation for whole families of keys at once.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LocalCache is an in-process LRU keyed by cache key, evicting by total
// byte weight rather than entry count. hashicorp/golang-lru tracks
// recency-of-use for us; we layer a byte budget on top by evicting its
// least-recently-used entries (in the order its Keys() reports them,
// oldest first) until the tracked total fits the configured capacity.
type LocalCache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, []byte]
	capacity  int64
	usedBytes int64
	hits      uint64
	misses    uint64
}

// NewLocalCache creates a local cache with the given byte capacity. The
// underlying LRU is sized generously on entry count (capacity is enforced
// by weight, not count) since golang-lru requires a positive size.
func NewLocalCache(capacityBytes int64) *LocalCache {
	// An entry-count ceiling is still required by the underlying library;
	// pick something unlikely to bind before the byte budget does.
	inner, _ := lru.New[string, []byte](1 << 20)
	return &LocalCache{
		entries:  inner,
		capacity: capacityBytes,
	}
}

// Get returns the cached bytes for key, if present, marking it most
// recently used.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set inserts or replaces key's bytes, then evicts least-recently-used
// entries until the cache's total tracked weight fits within capacity.
func (c *LocalCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Peek(key); ok {
		c.usedBytes -= int64(len(old))
	}
	c.entries.Add(key, value)
	c.usedBytes += int64(len(value))

	c.evictToFit()
}

// Invalidate drops key from the local tier, if present.
func (c *LocalCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Peek(key); ok {
		c.usedBytes -= int64(len(old))
		c.entries.Remove(key)
	}
}

// evictToFit must be called with c.mu held.
func (c *LocalCache) evictToFit() {
	for c.usedBytes > c.capacity {
		keys := c.entries.Keys()
		if len(keys) == 0 {
			break
		}
		oldest := keys[0]
		if v, ok := c.entries.Peek(oldest); ok {
			c.usedBytes -= int64(len(v))
		}
		c.entries.Remove(oldest)
	}
}

// Stats reports hit/miss counters for diagnostics and tests.
func (c *LocalCache) Stats() (hits, misses uint64, usedBytes, capacity int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.usedBytes, c.capacity
}

// Len reports the number of entries currently held.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
