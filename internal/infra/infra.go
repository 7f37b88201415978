// Package infra provides shared infrastructure components used across
// the application: caching and outbound rate limiting.
package infra

import (
	"context"
	"sort"
	"sync"
	"time"
)

// --- In-memory cache ---

// CacheEntry holds a cached value with its expiry. A zero ExpiresAt never expires.
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

func (e CacheEntry[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a thread-safe in-memory cache. A TTL of zero or less keeps
// entries until they are invalidated or the process exits.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a new cache with the given default TTL.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]CacheEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a value from the cache. Returns the zero value, false if
// not found or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.expired(c.now()) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores a value in the cache with the default TTL, replacing any
// previous entry for key.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	entry := CacheEntry[V]{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Invalidate removes a key from the cache and reports whether a live entry
// was dropped.
func (c *Cache[V]) Invalidate(key string) bool {
	now := c.now()
	c.mu.Lock()
	entry, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	return ok && !entry.expired(now)
}

// Flush removes all entries from the cache and returns how many were dropped.
func (c *Cache[V]) Flush() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]CacheEntry[V])
	c.mu.Unlock()
	return n
}

// Len returns the number of stored entries, including expired ones not yet
// cleaned up.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the live keys in sorted order.
func (c *Cache[V]) Keys() []string {
	now := c.now()
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, v := range c.entries {
		if v.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is canceled. onSweep,
// when non-nil, receives the number of entries each sweep removed.
func (c *Cache[V]) RunCleanup(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := c.Cleanup()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
