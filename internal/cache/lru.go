// internal/cache/lru.go
//
// Tiny LRU cache used by the public read path to store rendered page
// payloads.  Safe for concurrent use; good for a few thousand entries.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a non‑generic least‑recently‑used cache.
// Keys must be comparable; values can be any.
type LRU struct {
	mu   sync.Mutex
	cap  int
	ll   *list.List
	dict map[any]*list.Element
}

type pair struct {
	key any
	val any
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New(capacity int) *LRU {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[any]*list.Element, capacity),
	}
}

// Get retrieves a value or nil and marks it MRU.
func (c *LRU) Get(key any) (val any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair).val, true
	}
	return nil, false
}

// Add inserts or updates a value.
func (c *LRU) Add(key, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(pair{key, val})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(pair).key)
	}
}

// Remove drops one entry if present.
func (c *LRU) Remove(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
}

// RemoveFunc drops every entry whose key satisfies pred.  Used when a
// tenant-wide invalidation is cheaper than resolving individual keys.
func (c *LRU) RemoveFunc(pred func(key any) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, ele := range c.dict {
		if pred(key) {
			c.ll.Remove(ele)
			delete(c.dict, key)
		}
	}
}

// Len reports current size.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
