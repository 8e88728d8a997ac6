// Package cache provides the fixed-capacity caches shared by the outbound
// clients.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive capacity is requested.
const DefaultSize = 1000

// LRU is a thread-safe least-recently-used cache. Get promotes the key;
// Peek and Snapshot do not.
type LRU[K comparable, V any] struct {
	inner *lru.Cache[K, V]
	size  int
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int) *LRU[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	// lru.New only fails for a non-positive size.
	inner, _ := lru.New[K, V](size)
	return &LRU[K, V]{inner: inner, size: size}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) { return c.inner.Get(key) }

// Peek returns the value for key without touching recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) { return c.inner.Peek(key) }

// Add stores value under key and reports whether an entry was evicted.
func (c *LRU[K, V]) Add(key K, value V) bool { return c.inner.Add(key, value) }

// Len is the current number of entries.
func (c *LRU[K, V]) Len() int { return c.inner.Len() }

// Cap is the configured capacity.
func (c *LRU[K, V]) Cap() int { return c.size }

// Snapshot copies the entries, oldest first.
func (c *LRU[K, V]) Snapshot() map[K]V {
	keys := c.inner.Keys()
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := c.inner.Peek(k); ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns keys from oldest to newest.
func (c *LRU[K, V]) Keys() []K { return c.inner.Keys() }
