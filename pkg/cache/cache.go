// Package cache provides an in-memory LRU cache for memoised analysis
// results and a disk store for learned precisions.
package cache

import (
	"sync"
)

// Cache is a bounded key-value cache.
type Cache interface {
	// Get returns (value, true) if key is present, (nil, false) otherwise.
	Get(key string) (any, bool)

	// Set stores a value. If the cache is full the least recently used
	// entry is evicted.
	Set(key string, value any)

	Delete(key string)
	Clear()
	Len() int
}

// LRUCache is a Cache with least-recently-used eviction. It is safe for
// concurrent use.
type LRUCache struct {
	mu      sync.Mutex
	items   map[string]*listItem
	lru     *list
	maxSize int
	onEvict func(key string, value any)
	hits    int64
	misses  int64
}

// listItem is an entry in the recency list.
type listItem struct {
	key   string
	value any
	prev  *listItem
	next  *listItem
}

// list is a doubly-linked list with the most recently used item at the head.
type list struct {
	head *listItem
	tail *listItem
	len  int
}

func (l *list) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.unlink(item)
	l.pushFront(item)
}

// Options configures an LRUCache.
type Options struct {
	// MaxSize is the maximum number of entries; 0 means unlimited.
	MaxSize int

	// OnEvict is called when an entry is evicted or deleted.
	OnEvict func(key string, value any)
}

// New creates an LRU cache.
func New(opts Options) *LRUCache {
	return &LRUCache{
		items:   make(map[string]*listItem),
		lru:     &list{},
		maxSize: opts.MaxSize,
		onEvict: opts.OnEvict,
	}
}

func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.moveToFront(item)
	return item.value, true
}

func (c *LRUCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		item.value = value
		c.lru.moveToFront(item)
		return
	}
	item := &listItem{key: key, value: value}
	c.items[key] = item
	c.lru.pushFront(item)

	for c.maxSize > 0 && c.lru.len > c.maxSize {
		c.remove(c.lru.tail)
	}
}

func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		c.remove(item)
	}
}

func (c *LRUCache) remove(item *listItem) {
	c.lru.unlink(item)
	delete(c.items, item.key)
	if c.onEvict != nil {
		c.onEvict(item.key, item.value)
	}
}

// Clear drops all entries without calling OnEvict and resets the counters.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*listItem)
	c.lru = &list{}
	c.hits, c.misses = 0, 0
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats holds cache statistics.
type Stats struct {
	Length int   `json:"length"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// HitRate is the share of lookups that hit, or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Length: len(c.items), Hits: c.hits, Misses: c.misses}
}
