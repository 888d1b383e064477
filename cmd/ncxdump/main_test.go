package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/collection"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
	"github.com/hupe1980/gribidx/testutil"
)

// writeFixture writes a partition index over three base partitions with
// run2part [0,0,1,1,2] and returns the store root.
func writeFixture(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	store := blobstore.NewLocalStore(root)
	param := model.Param{Category: 1, Number: 8, LevelType: 1}

	for _, e := range testutil.GFS(param, 4096) {
		compression := ncx.CompressionZSTD
		if e.Collection.Kind == ncx.KindPartition {
			compression = ncx.CompressionLZ4
		}
		require.NoError(t, collection.Write(ctx, store, e.Collection.Name, e.Dir, e.Collection, compression))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"ncxdump"}, args...))
	return out.String(), err
}

func TestInfo(t *testing.T) {
	root := writeFixture(t)

	out, err := run(t, "--root", root, "--format", "json", "info", "-v", "gfs", "gfs_0.5deg")
	require.NoError(t, err)

	var r infoReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "gfs_0.5deg", r.Name)
	assert.Equal(t, "partition", r.Header.Kind)
	assert.Equal(t, uint32(1), r.Header.Version)
	assert.Equal(t, []int{0, 0, 1, 1, 2}, r.Run2Part)
	require.Len(t, r.Partitions, 3)
	assert.Equal(t, []int{2, 3}, r.Partitions[1].Runs)
	assert.Equal(t, "gfs/p1/gfs_0.5deg-p1.ncx", r.Partitions[1].Path)
	require.Len(t, r.Variables, 1)
	assert.Equal(t, []int{2, 1, 0}, r.Variables[0].Partitions)

	text, err := run(t, "--root", root, "info", "gfs", "gfs_0.5deg")
	require.NoError(t, err)
	assert.Contains(t, text, "gfs_0.5deg (gfs/gfs_0.5deg.ncx)")
	assert.Contains(t, text, "kind:        partition v1")
	assert.NotContains(t, text, "PARAM")
}

func TestLookup(t *testing.T) {
	root := writeFixture(t)

	out, err := run(t, "--root", root, "--format", "go-json", "lookup", "--run", "3", "gfs", "gfs_0.5deg")
	require.NoError(t, err)

	var r lookupReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "found", r.Status)
	require.NotNil(t, r.Location)
	assert.Equal(t, "gfs/p1/gfs_0.5deg-p1.grib2", r.Location.Path)
	assert.Equal(t, uint64(1020), r.Location.Offset)

	text, err := run(t, "--root", root, "lookup", "--run", "9", "gfs", "gfs_0.5deg")
	require.NoError(t, err)
	assert.Contains(t, text, "not_found")
}

func TestVerifyAndStale(t *testing.T) {
	root := writeFixture(t)

	out, err := run(t, "--root", root, "verify", "gfs", "gfs_0.5deg")
	require.NoError(t, err)
	assert.Equal(t, "gfs_0.5deg: ok\n", out)

	// Every partition file was written after the recorded time.
	out, err = run(t, "--root", root, "--format", "json", "stale", "gfs", "gfs_0.5deg")
	require.NoError(t, err)
	var stale []staleReport
	require.NoError(t, json.Unmarshal([]byte(out), &stale))
	assert.Len(t, stale, 3)

	store := blobstore.NewLocalStore(root)
	require.NoError(t, store.Put(context.Background(), "gfs/p2/gfs_0.5deg-p2.ncx", []byte("garbage")))

	out, err = run(t, "--root", root, "verify", "gfs", "gfs_0.5deg")
	require.Error(t, err)
	assert.Contains(t, out, "1 unusable partition(s)")
}

func TestList(t *testing.T) {
	root := writeFixture(t)
	store := blobstore.NewLocalStore(root)
	require.NoError(t, store.Put(context.Background(), "gfs/README", []byte("not an index")))
	require.NoError(t, store.Put(context.Background(), "gfs/broken.ncx", []byte("garbage")))

	out, err := run(t, "--root", root, "--format", "json", "list", "gfs/")
	require.NoError(t, err)

	var r []listReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r, 5)
	assert.Equal(t, "gfs/broken.ncx", r[0].Path)
	assert.Nil(t, r[0].Header)
	assert.NotEmpty(t, r[0].Error)
	assert.Equal(t, "gfs/gfs_0.5deg.ncx", r[1].Path)
	assert.Equal(t, "partition", r[1].Header.Kind)
	assert.Equal(t, "gfs/p0/gfs_0.5deg-p0.ncx", r[2].Path)
	assert.Equal(t, "base", r[2].Header.Kind)

	text, err := run(t, "--root", root, "ls")
	require.NoError(t, err)
	assert.Contains(t, text, "gfs/p2/gfs_0.5deg-p2.ncx")
	assert.NotContains(t, text, "README")
}

func TestErrors(t *testing.T) {
	root := writeFixture(t)

	_, err := run(t, "--root", root, "info", "gfs")
	require.ErrorContains(t, err, "want DIR NAME")

	_, err = run(t, "--root", root, "--store", "ftp", "info", "gfs", "gfs_0.5deg")
	require.ErrorContains(t, err, "unknown store")

	_, err = run(t, "--root", root, "--format", "yaml", "verify", "gfs", "gfs_0.5deg")
	require.ErrorContains(t, err, "unknown format")

	_, err = run(t, "--root", root, "info", "gfs", "nope")
	require.ErrorIs(t, err, collection.ErrNotFound)
}
