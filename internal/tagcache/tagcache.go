// Package tagcache implements the opportunistic URI->Tag lookup shared
// across partitions described in spec.md §2 (RemoteTagCache).
package tagcache

import (
	"container/list"
	"sync"
)

// Tag is whatever metadata a remote/streaming URI reports asynchronously
// (e.g. ICY title updates); tag extraction itself is out of scope per
// spec.md §1, this cache only stores and evicts already-extracted values.
type Tag struct {
	Title  string
	Artist string
}

type entry struct {
	uri string
	tag Tag
	elm *list.Element
}

// Cache is a bounded URI->Tag map with LRU eviction, shared by every
// Partition in the Instance (spec.md §3: "bounded entries").
type Cache struct {
	mu       sync.Mutex
	cap      int
	entries  map[string]*entry
	lru      *list.List // front = most recently used
}

// New creates a Cache bounded to cap entries (0 = default 256).
func New(cap int) *Cache {
	if cap <= 0 {
		cap = 256
	}
	return &Cache{
		cap:     cap,
		entries: make(map[string]*entry),
		lru:     list.New(),
	}
}

// Get returns the cached tag for uri, if any, and touches its LRU position.
func (c *Cache) Get(uri string) (Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[uri]
	if !ok {
		return Tag{}, false
	}
	c.lru.MoveToFront(e.elm)
	return e.tag, true
}

// Set records tag for uri, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Set(uri string, tag Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok {
		e.tag = tag
		c.lru.MoveToFront(e.elm)
		return
	}
	e := &entry{uri: uri, tag: tag}
	e.elm = c.lru.PushFront(e)
	c.entries[uri] = e
	for len(c.entries) > c.cap {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		oe := oldest.Value.(*entry)
		c.lru.Remove(oldest)
		delete(c.entries, oe.uri)
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
