package gribidx

import (
	"context"
	"time"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/collection"
	"github.com/hupe1980/gribidx/internal/cache"
	"github.com/hupe1980/gribidx/internal/resource"
	"github.com/hupe1980/gribidx/model"
)

// Backend is the storage holding index files.
type Backend struct {
	store  blobstore.BlobStore
	remote bool
}

// Local serves index files from a directory on the local filesystem.
// Index files are memory mapped.
func Local(root string) Backend {
	return Backend{store: blobstore.NewLocalStore(root)}
}

// Remote serves index files from a blob store such as s3.Store or
// minio.Store.
func Remote(store blobstore.BlobStore) Backend {
	return Backend{store: store, remote: true}
}

// env is the store and resource state shared by the indexes opened
// with one set of options.
type env struct {
	store      blobstore.BlobStore
	rc         *resource.Controller
	blockCache *cache.LRUBlockCache
	opts       options
}

func newEnv(b Backend, o options) *env {
	e := &env{
		store: b.store,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   o.blockCacheBytes,
			MaxConcurrentOpens: o.maxConcurrentOpens,
			IOLimitBytesPerSec: o.ioLimit,
		}),
		opts: o,
	}
	if b.remote && o.blockCacheBytes > 0 {
		e.blockCache = cache.NewLRUBlockCache(o.blockCacheBytes, e.rc)
		e.store = blobstore.NewCachingStore(b.store, e.blockCache, o.blockSize)
	}
	return e
}

func (e *env) open(ctx context.Context, dir, name string) (*Collection, error) {
	start := time.Now()
	idx, err := collection.Open(ctx, e.store, name, dir,
		collection.WithLogger(e.opts.logger.Logger),
		collection.WithLimiter(e.rc),
		collection.WithObserver(observer{logger: e.opts.logger, metrics: e.opts.metricsCollector}),
	)
	d := time.Since(start)

	var kind string
	if err == nil {
		kind = idx.Kind().String()
	}
	e.opts.metricsCollector.RecordOpen(kind, d, err)
	e.opts.logger.LogOpen(ctx, dir, name, kind, d, err)
	if err != nil {
		return nil, err
	}
	return &Collection{Index: idx, logger: e.opts.logger, metrics: e.opts.metricsCollector}, nil
}

func (e *env) close() error {
	if e.blockCache != nil {
		return e.blockCache.Close()
	}
	return nil
}

// Collection is an opened collection index instrumented with the configured
// logger and metrics collector.
type Collection struct {
	collection.Index

	logger  *Logger
	metrics MetricsCollector
	// env is set when the collection owns its store state (opened with Open).
	env *env
}

// Open opens the index of collection name stored in dir.
// Partition indexes open their partitions on first lookup.
func Open(ctx context.Context, backend Backend, dir, name string, opts ...Option) (*Collection, error) {
	e := newEnv(backend, applyOptions(opts))
	c, err := e.open(ctx, dir, name)
	if err != nil {
		_ = e.close()
		return nil, err
	}
	c.env = e
	return c, nil
}

// Lookup resolves a coordinate of a (group, variable) pair to the location
// of its record.
func (c *Collection) Lookup(ctx context.Context, group, variable int, coord model.Coord) (model.Location, error) {
	start := time.Now()
	loc, err := c.Index.Lookup(ctx, group, variable, coord)
	c.metrics.RecordLookup(time.Since(start), err)
	c.logger.LogLookup(ctx, c.Name(), group, variable, coord, err)
	return loc, err
}

// Partitioned returns the underlying partition index, if it is one.
func (c *Collection) Partitioned() (*collection.Partitioned, bool) {
	p, ok := c.Index.(*collection.Partitioned)
	return p, ok
}

// Base returns the underlying base index, if it is one.
func (c *Collection) Base() (*collection.Base, bool) {
	b, ok := c.Index.(*collection.Base)
	return b, ok
}
