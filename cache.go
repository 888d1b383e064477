package gribidx

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/gribidx/internal/cache"
)

type cacheKey struct {
	dir  string
	name string
}

// cacheEntry is guarded by Cache.mu.
type cacheEntry struct {
	key     cacheKey
	coll    *Collection
	refs    int
	evicted bool
}

// Cache keeps a bounded number of opened collection indexes.
//
// Acquire hands out reference counted handles. Concurrent acquires of the
// same collection share one open. An index that leaves the cache (capacity
// pressure, Evict, Purge or Close) is closed when its last handle is released.
type Cache struct {
	env *env
	sf  singleflight.Group

	// mu guards every entry and every mutation of lru, so the eviction
	// callback runs with mu held.
	mu     sync.Mutex
	lru    *cache.LRU[cacheKey, *cacheEntry]
	closed bool
}

// NewCache creates a cache holding at most capacity open indexes.
func NewCache(backend Backend, capacity int, opts ...Option) *Cache {
	c := &Cache{env: newEnv(backend, applyOptions(opts))}
	c.lru = cache.NewLRU(capacity, c.onEvict)
	return c
}

// Handle is a reference to a cached index. It must be released exactly once.
type Handle struct {
	*Collection

	c    *Cache
	e    *cacheEntry
	once sync.Once
}

// Acquire returns a handle to the index of collection name in dir, opening
// it if it is not cached.
func (c *Cache) Acquire(ctx context.Context, dir, name string) (*Handle, error) {
	key := cacheKey{dir: dir, name: name}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if e, ok := c.lru.Get(key); ok {
			e.refs++
			c.mu.Unlock()
			c.env.opts.metricsCollector.RecordCacheHit()
			return &Handle{Collection: e.coll, c: c, e: e}, nil
		}
		c.mu.Unlock()

		c.env.opts.metricsCollector.RecordCacheMiss()
		// The shared open outlives any single caller; each caller only
		// stops waiting when its own ctx ends.
		ch := c.sf.DoChan(dir+"\x00"+name, func() (any, error) {
			return c.load(context.WithoutCancel(ctx), key)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, res.Err
		}

		e := res.Val.(*cacheEntry)
		c.mu.Lock()
		// The entry may have been evicted and closed before this caller
		// got a reference.
		if e.evicted {
			c.mu.Unlock()
			continue
		}
		e.refs++
		c.mu.Unlock()
		return &Handle{Collection: e.coll, c: c, e: e}, nil
	}
}

func (c *Cache) load(ctx context.Context, key cacheKey) (*cacheEntry, error) {
	c.mu.Lock()
	if e, ok := c.lru.Get(key); ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	coll, err := c.env.open(ctx, key.dir, key.name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = coll.Close()
		return nil, ErrClosed
	}
	e := &cacheEntry{key: key, coll: coll}
	c.lru.Add(key, e)
	return e, nil
}

// onEvict runs with c.mu held.
func (c *Cache) onEvict(key cacheKey, e *cacheEntry) {
	e.evicted = true
	c.env.opts.metricsCollector.RecordEviction()
	c.env.opts.logger.LogEviction(context.Background(), key.dir, key.name, e.refs)
	if e.refs == 0 {
		c.closeEntry(e)
	}
}

func (c *Cache) closeEntry(e *cacheEntry) {
	if err := e.coll.Close(); err != nil {
		c.env.opts.logger.Warn("closing evicted index failed",
			"dir", e.key.dir, "collection", e.key.name, "error", err)
	}
}

// Release returns the handle. The index is closed if it was evicted and
// this was its last handle.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.c.mu.Lock()
		defer h.c.mu.Unlock()
		h.e.refs--
		if h.e.refs == 0 && h.e.evicted {
			h.c.closeEntry(h.e)
		}
	})
}

// Close releases the handle. The index itself stays owned by the cache.
func (h *Handle) Close() error {
	h.Release()
	return nil
}

// Evict removes a collection from the cache. It reports whether it was cached.
func (c *Cache) Evict(dir, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(cacheKey{dir: dir, name: name})
}

// Purge removes every collection from the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of cached collections.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Close purges the cache and rejects further acquires. Indexes with
// outstanding handles are closed when those are released.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.lru.Purge()
	c.mu.Unlock()

	return c.env.close()
}
