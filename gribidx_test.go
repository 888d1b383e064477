package gribidx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gribidx"
	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/collection"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
	"github.com/hupe1980/gribidx/testutil"
)

// writeBase writes a base collection with one variable of the given runs
// and two times, records at offset base + slot*10.
func writeBase(t testing.TB, store blobstore.BlobStore, dir, name string, runs int, base uint64) {
	t.Helper()
	c := testutil.Base(name, testutil.Temperature, runs, base, 64)
	require.NoError(t, collection.Write(context.Background(), store, name, dir, c, ncx.CompressionLZ4))
}

// writeGFS writes a partition collection over three base partitions with
// run2part [0,0,1,1,2].
func writeGFS(t testing.TB, store blobstore.BlobStore) {
	t.Helper()
	for _, e := range testutil.GFS(testutil.Temperature, 64) {
		require.NoError(t, collection.Write(context.Background(), store, e.Collection.Name, e.Dir, e.Collection, ncx.CompressionZSTD))
	}
}

func TestOpenLocal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeGFS(t, blobstore.NewLocalStore(root))

	metrics := &gribidx.BasicMetricsCollector{}
	idx, err := gribidx.Open(ctx, gribidx.Local(root), "gfs", "gfs_0.5deg",
		gribidx.WithMetricsCollector(metrics),
		gribidx.WithMaxConcurrentOpens(2),
	)
	require.NoError(t, err)

	p, ok := idx.Partitioned()
	require.True(t, ok)
	assert.Len(t, p.Partitions(), 3)

	loc, err := idx.Lookup(ctx, 0, 0, model.Coord{Run: 3})
	require.NoError(t, err)
	assert.Equal(t, "gfs/p1/gfs_0.5deg-p1.grib2", loc.Path)
	assert.Equal(t, uint64(1020), loc.Offset)

	_, err = idx.Lookup(ctx, 0, 0, model.Coord{Run: 7})
	require.ErrorIs(t, err, gribidx.ErrNotFound)

	require.NoError(t, idx.Close())
	_, err = idx.Lookup(ctx, 0, 0, model.Coord{Run: 3})
	require.ErrorIs(t, err, gribidx.ErrClosed)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(3), stats.LookupCount)
	assert.Equal(t, int64(2), stats.LookupErrors)
	assert.Equal(t, int64(1), stats.PartitionOpenCount)
	assert.Zero(t, stats.PartitionOpenErrors)
}

func TestOpenRemoteWithBlockCache(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBase(t, store, "hrrr", "hrrr", 4, 0)

	idx, err := gribidx.Open(ctx, gribidx.Remote(store), "hrrr", "hrrr",
		gribidx.WithBlockCache(1<<20, 16),
		gribidx.WithIOLimit(1<<30),
	)
	require.NoError(t, err)
	defer idx.Close()

	b, ok := idx.Base()
	require.True(t, ok)
	assert.Equal(t, []string{"hrrr.grib2"}, b.Files())

	loc, err := idx.Lookup(ctx, 0, 0, model.Coord{Run: 3, Time: 1})
	require.NoError(t, err)
	assert.Equal(t, model.Location{Collection: "hrrr", Path: "hrrr/hrrr.grib2", Offset: 70, Length: 64}, loc)
}

func TestOpenNotFound(t *testing.T) {
	metrics := &gribidx.BasicMetricsCollector{}
	_, err := gribidx.Open(context.Background(), gribidx.Remote(blobstore.NewMemoryStore()), "x", "nope",
		gribidx.WithMetricsCollector(metrics))
	require.ErrorIs(t, err, gribidx.ErrNotFound)

	var ge *gribidx.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "x/nope.ncx", ge.Path)
	assert.Equal(t, int64(1), metrics.GetStats().OpenErrors)
}

func TestCacheAcquireRelease(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBase(t, store, "a", "a", 1, 0)
	writeBase(t, store, "b", "b", 1, 500)

	metrics := &gribidx.BasicMetricsCollector{}
	c := gribidx.NewCache(gribidx.Remote(store), 1, gribidx.WithMetricsCollector(metrics))
	defer c.Close()

	h1, err := c.Acquire(ctx, "a", "a")
	require.NoError(t, err)
	h2, err := c.Acquire(ctx, "a", "a")
	require.NoError(t, err)
	assert.Same(t, h1.Collection, h2.Collection)
	h2.Release()
	h2.Release()

	// Capacity 1: acquiring b evicts a, which stays open for h1.
	hb, err := c.Acquire(ctx, "b", "b")
	require.NoError(t, err)
	defer hb.Release()
	assert.Equal(t, 1, c.Len())

	_, err = h1.Lookup(ctx, 0, 0, model.Coord{})
	require.NoError(t, err)

	h1.Release()
	_, err = h1.Collection.Lookup(ctx, 0, 0, model.Coord{})
	require.ErrorIs(t, err, gribidx.ErrClosed)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(2), stats.OpenCount)
}

func TestCacheEvictPurgeClose(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeBase(t, store, "a", "a", 1, 0)
	writeBase(t, store, "b", "b", 1, 0)

	c := gribidx.NewCache(gribidx.Remote(store), 8)

	for _, name := range []string{"a", "b"} {
		h, err := c.Acquire(ctx, name, name)
		require.NoError(t, err)
		h.Release()
	}
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Evict("a", "a"))
	assert.False(t, c.Evict("a", "a"))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())

	h, err := c.Acquire(ctx, "b", "b")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// The outstanding handle keeps its index open until released.
	_, err = h.Lookup(ctx, 0, 0, model.Coord{})
	require.NoError(t, err)
	require.NoError(t, h.Close())
	_, err = h.Collection.Lookup(ctx, 0, 0, model.Coord{})
	require.ErrorIs(t, err, gribidx.ErrClosed)

	_, err = c.Acquire(ctx, "a", "a")
	require.ErrorIs(t, err, gribidx.ErrClosed)
}

func TestCacheConcurrentAcquireOpensOnce(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeGFS(t, store)

	metrics := &gribidx.BasicMetricsCollector{}
	c := gribidx.NewCache(gribidx.Remote(store), 4, gribidx.WithMetricsCollector(metrics))
	defer c.Close()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := c.Acquire(ctx, "gfs", "gfs_0.5deg")
			if !assert.NoError(t, err) {
				return
			}
			defer h.Release()
			_, err = h.Lookup(ctx, 0, 0, model.Coord{Run: i % 5, Time: i % 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(3), stats.PartitionOpenCount)
	assert.Equal(t, int64(32), stats.LookupCount)
}

// gatedStore blocks opens of one blob until release is closed.
type gatedStore struct {
	*blobstore.MemoryStore

	name    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == s.name {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.MemoryStore.Open(ctx, name)
}

func TestCacheAcquireSharedOpenSurvivesCanceledCaller(t *testing.T) {
	store := &gatedStore{
		MemoryStore: blobstore.NewMemoryStore(),
		name:        "a/a.ncx",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	writeBase(t, store.MemoryStore, "a", "a", 1, 0)

	c := gribidx.NewCache(gribidx.Remote(store), 4)
	defer c.Close()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		h, err := c.Acquire(ctxA, "a", "a")
		if err == nil {
			h.Release()
		}
		errA <- err
	}()
	<-store.entered

	errB := make(chan error, 1)
	go func() {
		h, err := c.Acquire(context.Background(), "a", "a")
		if err == nil {
			_, err = h.Lookup(context.Background(), 0, 0, model.Coord{})
			h.Release()
		}
		errB <- err
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	require.NoError(t, <-errB)
	assert.Equal(t, 1, c.Len())
}

func TestLoggerLookupLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := gribidx.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()
	missing := &gribidx.Error{Kind: collection.KindMissing, Msg: "gone", Offset: -1}
	logger.LogLookup(ctx, "gfs", 0, 1, model.Coord{Run: 2}, missing)
	assert.Zero(t, buf.Len(), "unresolved lookups log at debug")

	corrupt := &gribidx.Error{Kind: collection.KindFormat, Msg: "bad", Offset: 12}
	logger.LogLookup(ctx, "gfs", 0, 1, model.Coord{Run: 2}, corrupt)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "lookup failed", rec["msg"])
	assert.Equal(t, "gfs", rec["collection"])
	assert.Equal(t, float64(1), rec["variable"])
}
