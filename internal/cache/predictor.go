// Package cache memoizes classifier predictions for repeated sensor values.
package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
)

// CachedPredictor wraps a Predictor with an in-memory LRU cache keyed on the
// exact sample. Cabin sensors report at fixed resolution, so identical
// readings recur while conditions are stable.
type CachedPredictor struct {
	// mu is held for reading by lookups and for writing by Reset, so no
	// prediction from a replaced model is cached after the reset.
	mu     sync.RWMutex
	inner  domain.Predictor
	cache  *lruCache
	lookup *prometheus.CounterVec // labels: result={hit,miss}; may be nil
}

// NewCachedPredictor creates a cache decorator around a predictor. lookups,
// if non-nil, counts hits and misses.
func NewCachedPredictor(inner domain.Predictor, maxEntries int, lookups *prometheus.CounterVec) *CachedPredictor {
	return &CachedPredictor{
		inner:  inner,
		cache:  newLRUCache(maxEntries),
		lookup: lookups,
	}
}

func (c *CachedPredictor) Predict(s domain.Sample) domain.Prediction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.cache.get(s); ok {
		c.count("hit")
		return p
	}
	c.count("miss")
	p := c.inner.Predict(s)
	c.cache.put(s, p)
	return p
}

// Reset runs replace with lookups blocked and, if it succeeds, drops every
// cached prediction. replace typically swaps the model behind inner.
func (c *CachedPredictor) Reset(replace func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := replace(); err != nil {
		return err
	}
	c.cache.purge()
	return nil
}

// Len returns the number of cached predictions.
func (c *CachedPredictor) Len() int {
	return c.cache.len()
}

func (c *CachedPredictor) count(result string) {
	if c.lookup != nil {
		c.lookup.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache for predictions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[domain.Sample]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   domain.Sample
	value domain.Prediction
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[domain.Sample]*entry),
	}
}

func (c *lruCache) get(key domain.Sample) (domain.Prediction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Prediction{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key domain.Sample, value domain.Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.head, c.tail = nil, nil
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
