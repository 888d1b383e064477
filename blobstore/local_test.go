package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	ifs "github.com/hupe1980/gribidx/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	name := "gfs/gfs_0.5deg.ncx"
	data := []byte("Grib2CollectionIndex payload for a test collection")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "gfs", "gfs_0.5deg.ncx"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 7)
	n, err = blob.ReadAt(ctx, buf, 5)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, "Collect", string(buf))

	rr, err := blob.ReadRange(ctx, 0, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(rr)
	require.NoError(t, err)
	require.NoError(t, rr.Close())
	require.Equal(t, "Grib", string(got))

	info, err := store.Stat(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.False(t, info.ModTime.IsZero())

	names, err := store.List(ctx, "gfs/")
	require.NoError(t, err)
	require.Equal(t, []string{name}, names)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, name))
}

func TestLocalBlobStore_ReadPastEnd(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.ncx", []byte("0123456789")))

	blob, err := store.Open(ctx, "a.ncx")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	err = ReadFull(ctx, blob, buf, 8)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	rr, err := blob.ReadRange(ctx, 20, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(rr)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalBlobStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty.ncx", nil))

	blob, err := store.Open(ctx, "empty.ncx")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(0), blob.Size())
}

func TestLocalBlobStore_ListSkipsTemp(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "b.ncx", []byte("b")))
	require.NoError(t, store.Put(ctx, "a.ncx", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".c.ncx.123.tmp"), []byte("x"), 0o644))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ncx", "b.ncx"}, names)

	names, err = NewLocalStore(filepath.Join(dir, "missing")).List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_PutRenameFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	faulty := ifs.NewFaultyFS(nil)
	store := newLocalStoreFS(dir, faulty)
	ctx := context.Background()

	boom := errors.New("rename failed")
	faulty.Fail(ifs.OpRename, "", boom)

	err := store.Put(ctx, "x.ncx", []byte("data"))
	require.ErrorIs(t, err, boom)

	_, err = os.Stat(filepath.Join(dir, "x.ncx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalBlobStore_OpenCancelled(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx, "a.ncx")
	require.ErrorIs(t, err, context.Canceled)
}
