// Package lrucache implements a bounded, least-recently-used cache whose
// entries expire lazily after a period without access.
package lrucache

import (
	"sync"
	"time"
)

type node[K comparable, V any] struct {
	key        K
	value      V
	lastAccess time.Time
	prev, next *node[K, V]
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces time.Now. Used by tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// WithEvictCallback registers fn to run whenever an entry leaves the cache
// because of capacity pressure or expiry. Explicit deletes do not trigger it.
func WithEvictCallback[K comparable, V any](fn func(key K, value V, expired bool)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// Cache is safe for concurrent use. The head of the list is the least
// recently used entry and the tail the most recent one.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*node[K, V]
	head     *node[K, V]
	tail     *node[K, V]
	now      func() time.Time
	onEvict  func(key K, value V, expired bool)
}

// New creates a cache holding at most capacity entries. A ttl of zero
// disables expiry.
func New[K comparable, V any](capacity int, ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*node[K, V], capacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it most recently used. An entry
// idle for ttl or longer is removed and reported as absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	n, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	now := c.now()
	if c.expired(n, now) {
		c.unlink(n)
		delete(c.items, key)
		c.mu.Unlock()
		c.evicted(n, true)
		var zero V
		return zero, false
	}

	n.lastAccess = now
	c.unlink(n)
	c.pushBack(n)
	v := n.value
	c.mu.Unlock()
	return v, true
}

// Put inserts or replaces key. When the insert pushes the cache past its
// capacity the least recently used entry is evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	if old, ok := c.items[key]; ok {
		c.unlink(old)
		delete(c.items, key)
	}

	n := &node[K, V]{key: key, value: value, lastAccess: c.now()}
	c.items[key] = n
	c.pushBack(n)

	var victim *node[K, V]
	if len(c.items) > c.capacity {
		victim = c.head
		c.unlink(victim)
		delete(c.items, victim.key)
	}
	c.mu.Unlock()

	if victim != nil {
		c.evicted(victim, false)
	}
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		c.unlink(n)
		delete(c.items, key)
	}
}

// Len reports the number of stored entries, including expired ones that
// have not been looked up yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the configured maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// TTL returns the idle expiry, zero when disabled.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Keys returns the keys from least to most recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for n := c.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*node[K, V], c.capacity)
	c.head, c.tail = nil, nil
}

func (c *Cache[K, V]) expired(n *node[K, V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(n.lastAccess) >= c.ttl
}

func (c *Cache[K, V]) evicted(n *node[K, V], expired bool) {
	if c.onEvict != nil {
		c.onEvict(n.key, n.value, expired)
	}
}

func (c *Cache[K, V]) pushBack(n *node[K, V]) {
	n.prev = c.tail
	n.next = nil
	if c.tail != nil {
		c.tail.next = n
	} else {
		c.head = n
	}
	c.tail = n
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
