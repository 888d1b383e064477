package cache

import (
	"container/list"
	"sync"
)

// LRU is a generic least-recently-used cache bounded by entry count.
//
// OnEvict is called, with the cache lock released, for every entry that
// leaves the cache through capacity pressure, Remove or Purge.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[K]*list.Element
	evictList *list.List
	onEvict   func(K, V)
}

type objEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates an LRU holding at most capacity entries (minimum 1).
func NewLRU[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		onEvict:   onEvict,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		return ent.Value.(*objEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Add inserts or replaces key. Replaced and evicted entries are passed to OnEvict.
func (c *LRU[K, V]) Add(key K, value V) {
	var evicted []*objEntry[K, V]

	c.mu.Lock()
	if ent, ok := c.items[key]; ok {
		old := ent.Value.(*objEntry[K, V])
		evicted = append(evicted, &objEntry[K, V]{key: key, value: old.value})
		old.value = value
		c.evictList.MoveToFront(ent)
	} else {
		c.items[key] = c.evictList.PushFront(&objEntry[K, V]{key: key, value: value})
		for c.evictList.Len() > c.capacity {
			evicted = append(evicted, c.removeElement(c.evictList.Back()))
		}
	}
	c.mu.Unlock()

	c.notify(evicted)
}

// Remove deletes key. It reports whether the key was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	ent, ok := c.items[key]
	var removed *objEntry[K, V]
	if ok {
		removed = c.removeElement(ent)
	}
	c.mu.Unlock()

	if ok {
		c.notify([]*objEntry[K, V]{removed})
	}
	return ok
}

// Purge removes all entries.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	evicted := make([]*objEntry[K, V], 0, c.evictList.Len())
	for c.evictList.Len() > 0 {
		evicted = append(evicted, c.removeElement(c.evictList.Back()))
	}
	c.mu.Unlock()

	c.notify(evicted)
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Keys returns the keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.evictList.Len())
	for e := c.evictList.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*objEntry[K, V]).key)
	}
	return keys
}

func (c *LRU[K, V]) removeElement(e *list.Element) *objEntry[K, V] {
	c.evictList.Remove(e)
	kv := e.Value.(*objEntry[K, V])
	delete(c.items, kv.key)
	return kv
}

func (c *LRU[K, V]) notify(evicted []*objEntry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, kv := range evicted {
		c.onEvict(kv.key, kv.value)
	}
}
