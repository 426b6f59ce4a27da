// Package lru provides a bounded, concurrency-safe key/value cache with
// least-recently-used eviction.
//
// Recency is tracked with a monotonic access counter rather than wall-clock
// time, so two accesses never tie. When the cache is full, an insert evicts
// the least recently used entry among a sample of at most EvictionSample
// entries; caches no larger than the sample evict exactly.
package lru

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is used when New receives a non-positive capacity.
const DefaultCapacity = 10000

// EvictionSample bounds the number of entries inspected per eviction.
const EvictionSample = 64

type entry[V any] struct {
	value V
	tick  atomic.Uint64
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Count     int
	Capacity  int
}

// Cache is a capacity-bounded map safe for concurrent use. The zero value is
// not usable; construct with New.
type Cache[K comparable, V any] struct {
	mu       sync.RWMutex
	entries  map[K]*entry[V]
	capacity int

	clock     atomic.Uint64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New constructs a cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		entries:  make(map[K]*entry[V], min(capacity, 1024)),
		capacity: capacity,
	}
}

// Get returns the cached value for key and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	var value V
	if ok {
		e.tick.Store(c.clock.Add(1))
		value = e.value
	}
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return value, false
	}
	c.hits.Add(1)
	return value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.tick.Store(c.clock.Add(1))
		return
	}
	for len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	e := &entry[V]{value: value}
	e.tick.Store(c.clock.Add(1))
	c.entries[key] = e
}

// GetOrCompute returns the cached value for key or computes, stores, and
// returns it. Concurrent misses on the same key may each run compute; the
// last result stored wins. Errors are returned without caching.
func (c *Cache[K, V]) GetOrCompute(key K, compute func(K) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := compute(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, value)
	return value, nil
}

// Remove deletes key and reports whether it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Count returns the number of cached entries.
func (c *Cache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the configured entry bound.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Count:     c.Count(),
		Capacity:  c.capacity,
	}
}

func (c *Cache[K, V]) evictLocked() {
	var (
		victim K
		oldest uint64
		found  bool
		seen   int
	)
	for key, e := range c.entries {
		if tick := e.tick.Load(); !found || tick < oldest {
			victim, oldest, found = key, tick, true
		}
		seen++
		if seen >= EvictionSample {
			break
		}
	}
	if found {
		delete(c.entries, victim)
		c.evictions.Add(1)
	}
}
