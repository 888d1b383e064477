package blobstore

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/gribidx/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts backend ReadAt calls.
type countingStore struct {
	*MemoryStore
	reads atomic.Int64
}

type countingBlob struct {
	Blob
	reads *atomic.Int64
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.reads.Add(1)
	return b.Blob.ReadAt(ctx, p, off)
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, reads: &s.reads}, nil
}

func newCountingStore(t *testing.T, name string, data []byte) *countingStore {
	t.Helper()
	s := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, s.Put(context.Background(), name, data))
	return s
}

func TestCachingStore_ReadAt(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	inner := newCountingStore(t, "test.ncx", data)
	c := cache.NewLRUBlockCache(1024, nil)
	store := NewCachingStore(inner, c, 10)
	ctx := context.Background()

	blob, err := store.Open(ctx, "test.ncx")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, data[0:5], buf)
	assert.Equal(t, int64(1), inner.reads.Load())

	// Same block is served from cache.
	n, err = blob.ReadAt(ctx, buf, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, data[5:10], buf)
	assert.Equal(t, int64(1), inner.reads.Load())

	// Crosses blocks 0 (cached), 1 and 2 (one coalesced read).
	buf = make([]byte, 20)
	n, err = blob.ReadAt(ctx, buf, 8)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, data[8:28], buf)
	assert.Equal(t, int64(2), inner.reads.Load())

	rr, err := blob.ReadRange(ctx, 90, 50)
	require.NoError(t, err)
	tail, err := io.ReadAll(rr)
	require.NoError(t, err)
	assert.Equal(t, data[90:], tail)
}

func TestCachingStore_SmallFile(t *testing.T) {
	data := []byte("hello")
	inner := newCountingStore(t, "small.ncx", data)
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 10)
	ctx := context.Background()

	blob, err := store.Open(ctx, "small.ncx")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)
	assert.Equal(t, data, buf[:n])

	_, err = blob.ReadAt(ctx, buf, 5)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	inner := newCountingStore(t, "a.ncx", []byte("old-data"))
	c := cache.NewLRUBlockCache(1024, nil)
	store := NewCachingStore(inner, c, 4)
	ctx := context.Background()

	blob, err := store.Open(ctx, "a.ncx")
	require.NoError(t, err)
	buf := make([]byte, 8)
	require.NoError(t, ReadFull(ctx, blob, buf, 0))
	require.NoError(t, blob.Close())
	assert.Positive(t, c.Size())

	require.NoError(t, store.Put(ctx, "a.ncx", []byte("new-data")))
	assert.Zero(t, c.Size())

	blob, err = store.Open(ctx, "a.ncx")
	require.NoError(t, err)
	defer blob.Close()
	require.NoError(t, ReadFull(ctx, blob, buf, 0))
	assert.Equal(t, "new-data", string(buf))
}

func TestCachingStore_Stat(t *testing.T) {
	inner := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, inner.Put(ctx, "a.ncx", []byte("abc")))
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.True(t, inner.Touch("a.ncx", ts))

	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 0)
	info, err := store.Stat(ctx, "a.ncx")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.True(t, info.ModTime.Equal(ts))

	_, err = store.Stat(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
