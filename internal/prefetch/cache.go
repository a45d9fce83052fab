// Package prefetch implements the InputCache described in spec.md §4.7:
// a URI->bytes cache with a size cap, LRU-by-time eviction, and
// single-flight fills so the I/O thread never opens the same URI twice
// concurrently.
package prefetch

import (
	"container/list"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNotEligible is returned by Get(create=true) when a URI cannot be
// prefetched (size unknown, too large, or a streaming protocol — spec.md
// §4.7).
var ErrNotEligible = errors.New("prefetch: uri not eligible")

// Opener abstracts the blocking input-stream open spec.md assigns to the
// I/O thread. Implementations decide eligibility (size known, not a
// streaming protocol) and return the full size if known up front.
type Opener interface {
	// Open returns a reader for uri and its size in bytes, or
	// ErrNotEligible if uri cannot be prefetched.
	Open(ctx context.Context, uri string) (r io.ReadCloser, size int64, err error)
}

// Item mirrors spec.md §3's InputCacheItem.
type Item struct {
	URI          string
	Bytes        []byte
	SizeBytes    int64
	LeaseCount   int
	LastAccess   time.Time
}

type entry struct {
	item *Item
	elm  *list.Element // element in lru, keyed by URI
}

// Lease pins an Item against eviction until Release is called (spec.md
// GLOSSARY: "a live reference to a cache item that pins it against
// eviction").
type Lease struct {
	cache *Cache
	uri   string
	once  sync.Once
}

// Release drops the lease. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.cache.releaseLease(l.uri)
	})
}

// Cache is the InputCache (spec.md §4.7). All operations take a single
// mutex; fills run on whatever goroutine calls Get(create=true), which in
// the real daemon is always the I/O thread's event loop goroutine.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*entry
	lru        *list.List // front = most recently used
	totalSize  int64
	cap        int64
	opener     Opener
	group      singleflight.Group // single-flight per URI fill, per spec.md §4.7
}

// New creates a Cache bounded to capBytes total bytes.
func New(capBytes int64, opener Opener) *Cache {
	return &Cache{
		items:  make(map[string]*entry),
		lru:    list.New(),
		cap:    capBytes,
		opener: opener,
	}
}

// Contains reports whether uri is present (fully or partially filled),
// without blocking (spec.md §4.7).
func (c *Cache) Contains(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[uri]
	return ok
}

// TotalSize returns the current total cached byte count.
func (c *Cache) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

// Prefetch is Get(uri, create=true) followed by an immediate Release,
// i.e. "warm the cache but don't hold a lease" (spec.md §4.7).
func (c *Cache) Prefetch(ctx context.Context, uri string) error {
	lease, err := c.Get(ctx, uri, true)
	if err != nil {
		return err
	}
	lease.Release()
	return nil
}

// Get returns a Lease on uri's cached bytes, creating and filling the
// entry if create is true and it is eligible and fits. Returns
// (nil, nil) if the item is absent and create is false.
func (c *Cache) Get(ctx context.Context, uri string, create bool) (*Lease, error) {
	c.mu.Lock()
	if e, ok := c.items[uri]; ok {
		c.lru.MoveToFront(e.elm)
		e.item.LastAccess = time.Now()
		e.item.LeaseCount++
		c.mu.Unlock()
		return &Lease{cache: c, uri: uri}, nil
	}
	c.mu.Unlock()

	if !create {
		return nil, nil
	}

	// Single-flight: concurrent Get(create=true) calls for the same URI
	// share one Open+fill; only the first caller actually reads.
	_, err, _ := c.group.Do(uri, func() (any, error) {
		// A fill that finished after the lookup above has already cached
		// uri; reuse it rather than opening it a second time.
		c.mu.Lock()
		_, filled := c.items[uri]
		c.mu.Unlock()
		if filled {
			return nil, nil
		}
		r, size, err := c.opener.Open(ctx, uri)
		if err != nil {
			return nil, err
		}
		defer r.Close()

		c.mu.Lock()
		if !c.makeRoomLocked(size) {
			c.mu.Unlock()
			return nil, ErrNotEligible
		}
		c.mu.Unlock()

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}

		item := &Item{URI: uri, Bytes: data, SizeBytes: int64(len(data)), LeaseCount: 0, LastAccess: time.Now()}
		c.mu.Lock()
		e := &entry{item: item}
		e.elm = c.lru.PushFront(e)
		c.items[uri] = e
		c.totalSize += item.SizeBytes
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, ok := c.items[uri]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNotEligible
	}
	e.item.LeaseCount++
	e.item.LastAccess = time.Now()
	c.lru.MoveToFront(e.elm)
	c.mu.Unlock()
	return &Lease{cache: c, uri: uri}, nil
}

// makeRoomLocked evicts LRU items with LeaseCount==0 until upcoming fits,
// returning false if it can't make room (spec.md §4.7 eviction policy).
// Caller must hold c.mu.
func (c *Cache) makeRoomLocked(upcoming int64) bool {
	if upcoming > c.cap {
		return false
	}
	for c.totalSize+upcoming > c.cap {
		victim := c.evictOneLocked()
		if victim == nil {
			return false
		}
	}
	return true
}

// evictOneLocked removes the least-recently-used unleased item, returning
// it, or nil if none is evictable. Caller must hold c.mu.
func (c *Cache) evictOneLocked() *Item {
	for elm := c.lru.Back(); elm != nil; elm = elm.Prev() {
		e := elm.Value.(*entry)
		if e.item.LeaseCount == 0 {
			c.lru.Remove(elm)
			delete(c.items, e.item.URI)
			c.totalSize -= e.item.SizeBytes
			logEviction(e.item.URI, e.item.SizeBytes)
			return e.item
		}
	}
	return nil
}

func (c *Cache) releaseLease(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[uri]
	if !ok {
		return
	}
	if e.item.LeaseCount > 0 {
		e.item.LeaseCount--
	}
}

// Flush evicts every item with LeaseCount==0 (spec.md §4.7).
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		victim := c.evictOneLocked()
		if victim == nil {
			return
		}
	}
}

// logEviction is a hook point tests can observe via slog output; kept as
// a named no-op-by-default function so callers don't need to thread a
// logger through every Cache.
var logEviction = func(uri string, size int64) {
	slog.Debug("prefetch cache evicted", "uri", uri, "size", size)
}
