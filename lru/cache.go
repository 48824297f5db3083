// Package lru implements a bounded, thread-safe LRU cache with optional
// idle expiry.
package lru

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrCapacity is returned by New for a capacity below one.
var ErrCapacity = errors.New("lru: capacity must be >= 1")

type entry[K comparable, V any] struct {
	key      K
	val      V
	lastUsed time.Time
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithIdleTTL expires entries not used for ttl. Expired entries are dropped
// lazily on access and when the cache needs room.
func WithIdleTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) { c.ttl = ttl }
}

// WithOnEvict registers a callback run, under the cache lock, whenever an
// entry leaves the cache because of capacity or expiry.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// WithClock overrides time.Now.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) { c.now = now }
}

// Cache is a generic LRU cache. The zero value is not usable.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List // front is most recently used
	onEvict  func(K, V)
	now      func() time.Time
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	c := &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the value for key and marks it used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[K, V]).val, true
}

// GetOrAdd returns the value for key, creating it with create when absent.
// The boolean reports whether the value already existed.
func (c *Cache[K, V]) GetOrAdd(key K, create func() V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.lookup(key); ok {
		return el.Value.(*entry[K, V]).val, true
	}
	v := create()
	c.insert(key, v)
	return v, false
}

// Put inserts or replaces the value for key.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.val = val
		e.lastUsed = c.now()
		c.order.MoveToFront(el)
		return
	}
	c.insert(key, val)
}

// Delete removes key without running the eviction callback.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Len returns the number of entries, including any not yet expired lazily.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// lookup finds key, dropping it if expired. Caller holds the lock.
func (c *Cache[K, V]) lookup(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	now := c.now()
	if c.expired(e, now) {
		c.evict(el)
		return nil, false
	}
	e.lastUsed = now
	c.order.MoveToFront(el)
	return el, true
}

func (c *Cache[K, V]) insert(key K, val V) {
	c.pruneExpired()
	for len(c.items) >= c.capacity {
		c.evict(c.order.Back())
	}
	el := c.order.PushFront(&entry[K, V]{key: key, val: val, lastUsed: c.now()})
	c.items[key] = el
}

// pruneExpired drops expired entries from the cold end.
func (c *Cache[K, V]) pruneExpired() {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	for el := c.order.Back(); el != nil; el = c.order.Back() {
		if !c.expired(el.Value.(*entry[K, V]), now) {
			return
		}
		c.evict(el)
	}
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.lastUsed) > c.ttl
}

func (c *Cache[K, V]) evict(el *list.Element) {
	e := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.items, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.val)
	}
}
