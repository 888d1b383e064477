package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "bucket", "grib/")
	assert.Equal(t, "grib/gfs/gfs_0.5deg.ncx", s.key("gfs/gfs_0.5deg.ncx"))
	assert.Equal(t, "gfs/gfs_0.5deg.ncx", s.rel("grib/gfs/gfs_0.5deg.ncx"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "a.ncx", s.key("a.ncx"))
	assert.Equal(t, "a.ncx", s.rel("a.ncx"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

// TestMinioStore_Integration requires a running MinIO instance at MINIO_ENDPOINT.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	bucket := "test-gribidx"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("Grib2CollectionIndex")
	require.NoError(t, store.Put(ctx, "gfs/a.ncx", data))

	blob, err := store.Open(ctx, "gfs/a.ncx")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 4)
	require.NoError(t, blobstore.ReadFull(ctx, blob, buf, 4))
	assert.Equal(t, "2Col", string(buf))

	rc, err := blob.ReadRange(ctx, 15, 100)
	require.NoError(t, err)
	tail, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Index", string(tail))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	info, err := store.Stat(ctx, "gfs/a.ncx")
	require.NoError(t, err)
	assert.False(t, info.ModTime.IsZero())

	names, err := store.List(ctx, "gfs/")
	require.NoError(t, err)
	assert.Contains(t, names, "gfs/a.ncx")

	require.NoError(t, store.Delete(ctx, "gfs/a.ncx"))
	_, err = store.Open(ctx, "gfs/a.ncx")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.ncx")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	info, err = store.Stat(ctx, "stream.ncx")
	require.NoError(t, err)
	assert.Equal(t, int64(13), info.Size)
	_ = store.Delete(ctx, "stream.ncx")
}
