// Package cache provides a bounded LRU cache for computed results.
//
// The HTTP server keeps encoded responses of the batch endpoints here, so
// repeating an identical similarity, enrichment or linkage request skips
// the computation.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration
// - Thread-safe operations
// - Hit/miss statistics
//
// Usage:
//
//	c := cache.New[[]byte](1024, 10*time.Minute)
//	key := cache.Key("/similarity", body)
//	if resp, ok := c.Get(key); ok {
//		return resp
//	}
//	resp := compute(body)
//	c.Put(key, resp)
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is a thread-safe LRU cache keyed by 64-bit hashes.
type Cache[V any] struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   atomic.Uint64
	misses atomic.Uint64

	// now is replaced in tests.
	now func() time.Time
}

type entry[V any] struct {
	key       uint64
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most maxSize entries (1000 when maxSize is
// not positive). A zero ttl disables expiration.
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
		now:     time.Now,
	}
}

// Key hashes an operation name and its payload.
func Key(op string, payload []byte) uint64 {
	d := xxhash.New()
	d.WriteString(op)
	d.Write([]byte{0})
	d.Write(payload)
	return d.Sum64()
}

// Get returns the cached value if present and not expired.
func (c *Cache[V]) Get(key uint64) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses.Add(1)
		return zero, false
	}
	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	e := elem.Value.(*entry[V])
	if c.ttl > 0 && c.now().After(e.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return zero, false
	}
	c.list.MoveToFront(elem)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full. Updating an entry refreshes its TTL.
func (c *Cache[V]) Put(key uint64, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = c.expiry()
		c.list.MoveToFront(elem)
		return
	}
	for c.list.Len() >= c.maxSize {
		c.removeElement(c.list.Back())
	}
	c.items[key] = c.list.PushFront(&entry[V]{key: key, value: value, expiresAt: c.expiry()})
}

// Remove removes an entry from the cache.
func (c *Cache[V]) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	clear(c.items)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// SetEnabled enables or disables the cache. Disabling drops all entries.
func (c *Cache[V]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.list.Init()
		clear(c.items)
	}
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Size:    c.Len(),
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int     // Current number of entries
	MaxSize int     // Maximum capacity
	Hits    uint64  // Number of cache hits
	Misses  uint64  // Number of cache misses
	HitRate float64 // Hit rate percentage (0-100)
}

func (c *Cache[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *Cache[V]) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry[V]).key)
}
