package throttle

import (
	"container/list"
	"fmt"
	"sync"
)

// entry holds the running count for one identity. It lives inside a recency
// list element; the front of the list is the most recently touched entry.
type entry struct {
	id    Identity
	count int64
}

// CounterCache is a capacity-bounded map from Identity to occurrence count with
// least-recently-used eviction. A capacity of 0 means unbounded.
type CounterCache struct {
	capacity int

	mu        sync.Mutex
	entries   map[Identity]*list.Element
	recency   *list.List
	evictions uint64
}

// NewCounterCache creates an empty cache holding at most capacity identities.
func NewCounterCache(capacity int) (*CounterCache, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeCapacity, capacity)
	}
	return &CounterCache{
		capacity: capacity,
		entries:  make(map[Identity]*list.Element),
		recency:  list.New(),
	}, nil
}

// Touch records one occurrence of id and returns its new count. An identity
// seen for the first time starts at 1; if the cache is full the least recently
// touched identity is evicted to make room.
func (c *CounterCache) Touch(id Identity) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		e := el.Value.(*entry)
		e.count++
		c.recency.MoveToFront(el)
		return e.count
	}

	if c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[id] = c.recency.PushFront(&entry{id: id, count: 1})
	return 1
}

// evictOldest removes the entry at the back of the recency list.
// Callers must hold c.mu.
func (c *CounterCache) evictOldest() {
	el := c.recency.Back()
	if el == nil {
		return
	}
	c.recency.Remove(el)
	delete(c.entries, el.Value.(*entry).id)
	c.evictions++
}

// Count returns the current count for id without changing its recency.
func (c *CounterCache) Count(id Identity) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return 0, false
	}
	return el.Value.(*entry).count, true
}

// Len returns the number of identities currently held.
func (c *CounterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the configured bound, 0 when unbounded.
func (c *CounterCache) Capacity() int {
	return c.capacity
}

// Evictions returns how many identities have been dropped for capacity.
func (c *CounterCache) Evictions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// Reset drops every entry. The eviction total is kept.
func (c *CounterCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Identity]*list.Element)
	c.recency.Init()
}
