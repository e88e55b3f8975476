package cache

import (
	"container/list"
	"sync"
)

// lruEntry represents an entry in the LRU cache.
type lruEntry[V any] struct {
	key   string
	value V
}

// LRUCache is a thread-safe cache with strict least-recently-used eviction.
// When the maximum size is exceeded the entry that has gone longest without
// a Get or Set is removed.
type LRUCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element // key -> list element
	order   *list.List               // doubly-linked list, front = most recent
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
	copier  Copier[V]
}

// NewLRU creates a new LRU cache holding at most maxSize entries.
// maxSize values below 1 are clamped to 1.
func NewLRU[V any](maxSize int, options ...Option[V]) *LRUCache[V] {
	if maxSize < 1 {
		maxSize = 1
	}

	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil {
		metrics = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
	}

	return &LRUCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
		copier:  opts.copier,
	}
}

// Get retrieves a value by key and marks it as recently used.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return zero, false
	}

	c.order.MoveToFront(element)

	entry := element.Value.(*lruEntry[V])
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	if c.copier != nil {
		return c.copier(entry.value), true
	}
	return entry.value, true
}

// Set stores a value with the given key and marks it as recently used.
func (c *LRUCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	if c.copier != nil {
		value = c.copier(value)
	}

	var evicted *lruEntry[V]

	c.mu.Lock()

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*lruEntry[V])
		entry.value = value
		c.order.MoveToFront(element)
		c.stats.Set()
		c.mu.Unlock()
		return false, nil
	}

	entry := &lruEntry[V]{key: key, value: value}
	c.items[key] = c.order.PushFront(entry)

	if len(c.items) > c.maxSize {
		evicted = c.evictOldest()
	}

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	c.mu.Unlock()

	// Eviction callback runs outside the lock to prevent deadlock.
	if evicted != nil && c.evictFn != nil {
		c.evictFn(evicted.key, evicted.value)
	}

	return true, nil
}

// Delete removes an entry by key.
func (c *LRUCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	c.removeElement(element)
	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	c.mu.Unlock()

	return true, nil
}

// Clear removes all entries from the cache.
func (c *LRUCache[V]) Clear() error {
	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.UpdateSize(0)
	c.mu.Unlock()
	return nil
}

// Size returns the current number of entries in the cache.
func (c *LRUCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns all keys, most recently used first.
func (c *LRUCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *LRUCache[V]) Stats() *Statistics {
	return c.stats
}

// evictOldest removes the least recently used entry and returns it.
// Must be called with the mutex held.
func (c *LRUCache[V]) evictOldest() *lruEntry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}

	entry := element.Value.(*lruEntry[V])
	c.removeElement(element)
	c.stats.Eviction()
	if c.metrics != nil {
		c.metrics.recordEviction()
	}
	return entry
}

// removeElement removes an element from both the list and map.
// Must be called with the mutex held.
func (c *LRUCache[V]) removeElement(element *list.Element) {
	entry := element.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
}

// compile-time interface check
var _ Cache[int] = (*LRUCache[int])(nil)
