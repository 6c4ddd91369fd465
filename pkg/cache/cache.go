// Package cache provides a small in-process TTL cache with LRU eviction.
//
// The public profile page is read-heavy: every visitor resolves the same
// slug to the same profile and memory wall. Caching that lookup keeps the
// record store out of the hot path while the TTL bounds staleness. The
// cache is explicit: callers construct it, wire it, and invalidate it on
// writes, so the caching behavior is visible at the call site instead of
// hidden inside a store.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds cache tuning.
type Config struct {
	// Enabled controls whether caching is active. A disabled cache misses
	// on every Get, so callers need no conditional wiring.
	Enabled bool

	// TTL is how long cached entries remain valid.
	TTL time.Duration

	// MaxEntries limits the cache size (LRU eviction).
	MaxEntries int
}

// DefaultConfig returns production-ready cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		TTL:        30 * time.Second,
		MaxEntries: 1000,
	}
}

// Cache is a bounded TTL cache keyed by K.
//
// Thread Safety: safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	lruList *list.List

	enabled    bool
	ttl        time.Duration
	maxEntries int

	hits   uint64
	misses uint64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	timestamp time.Time
	lruNode   *list.Element
}

// New creates a cache. A zero TTL or MaxEntries falls back to the default.
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}

	return &Cache[K, V]{
		entries:    make(map[K]*entry[K, V]),
		lruList:    list.New(),
		enabled:    config.Enabled,
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
	}
}

// Get returns the cached value for key if present and unexpired.
//
// A hit moves the entry to the front of the LRU order.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	if !c.enabled {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		c.misses++
		return zero, false
	}

	if time.Since(e.timestamp) > c.ttl {
		// Expired entries are removed eagerly so Len reflects live entries.
		c.lruList.Remove(e.lruNode)
		delete(c.entries, key)
		c.misses++
		return zero, false
	}

	c.lruList.MoveToFront(e.lruNode)
	c.hits++
	return e.value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *Cache[K, V]) Put(key K, value V) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.entries[key]; exists {
		existing.value = value
		existing.timestamp = time.Now()
		c.lruList.MoveToFront(existing.lruNode)
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	e := &entry[K, V]{
		key:       key,
		value:     value,
		timestamp: time.Now(),
	}
	e.lruNode = c.lruList.PushFront(key)
	c.entries[key] = e
}

// evictOldest removes the least recently used entry.
// Must be called with c.mu held.
func (c *Cache[K, V]) evictOldest() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.lruList.Remove(oldest)
	delete(c.entries, oldest.Value.(K))
}

// Invalidate removes a single entry. Called by writers after mutating the
// record the entry was derived from.
func (c *Cache[K, V]) Invalidate(key K) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return
	}
	c.lruList.Remove(e.lruNode)
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.lruList = list.New()
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit/miss counts and the current size.
func (c *Cache[K, V]) Stats() (hits, misses uint64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
