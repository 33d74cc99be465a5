package engine

import (
	"container/list"
	"sync"
)

// DefaultCacheCapacity bounds the value-function memo.
const DefaultCacheCapacity = 1024

// memoKey is the exact value-function parameter tuple. Name and units are
// display-only and deliberately excluded: two specs that differ only in label
// evaluate identically. Any numeric or direction change produces a new key.
type memoKey struct {
	direction Direction
	pMin      float64
	pMax      float64
	b         float64
	k         float64
	c         float64
	reading   float64
}

type memoValue struct {
	score      float64
	degenerate bool
}

type memoEntry struct {
	key   memoKey
	value memoValue
}

// Cache is a bounded LRU memo for value-function evaluations. It is shared
// across concurrent evaluations and guarded by a single mutex; entries are
// immutable once stored so callers can never observe staleness.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[memoKey]*list.Element
	lru      *list.List

	hits   int64
	misses int64
}

// CacheStats is a point-in-time snapshot of memo effectiveness.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// NewCache creates an LRU memo holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[memoKey]*list.Element),
		lru:      list.New(),
	}
}

func (c *Cache) get(key memoKey) (memoValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*memoEntry).value, true
	}
	c.misses++
	return memoValue{}, false
}

func (c *Cache) put(key memoKey, value memoValue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*memoEntry).value = value
		return
	}

	elem := c.lru.PushFront(&memoEntry{key: key, value: value})
	c.entries[key] = elem

	if c.lru.Len() > c.capacity {
		back := c.lru.Back()
		if back != nil {
			c.lru.Remove(back)
			delete(c.entries, back.Value.(*memoEntry).key)
		}
	}
}

// Len returns the current number of memoized tuples.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit/miss counters and the current size.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{Hits: c.hits, Misses: c.misses, Size: c.lru.Len()}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[memoKey]*list.Element)
	c.lru = list.New()
	c.hits = 0
	c.misses = 0
}
