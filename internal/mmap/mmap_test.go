package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.ncx")
	require.NoError(t, os.WriteFile(path, []byte("Grib2CollectionIndex"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 20, m.Len())
	assert.Equal(t, "Grib2CollectionIndex", string(m.Bytes()))

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 15)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Index", string(buf))

	n, err = m.ReadAt(buf, 18)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.ReadAt(buf, 100)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpen_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ncx")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Nil(t, m.Bytes())
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
