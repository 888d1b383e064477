package collection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/ncx"
	"github.com/hupe1980/gribidx/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var tmp = testutil.Temperature

// recordingStore counts opens per blob and can fail them.
type recordingStore struct {
	*blobstore.MemoryStore

	mu    sync.Mutex
	opens map[string]int
	fail  map[string]error
	gates map[string]chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: blobstore.NewMemoryStore(),
		opens:       make(map[string]int),
		fail:        make(map[string]error),
		gates:       make(map[string]chan struct{}),
	}
}

func (s *recordingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	s.mu.Lock()
	s.opens[name]++
	err := s.fail[name]
	gate := s.gates[name]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Open(ctx, name)
}

func (s *recordingStore) failOpen(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, name)
		return
	}
	s.fail[name] = err
}

// gate blocks opens of name until the returned func is called.
func (s *recordingStore) gate(name string) (open func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[name] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *recordingStore) openCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[name]
}

func baseIndex(name string, runs int, offsetBase uint64) *ncx.Collection {
	return testutil.Base(name, tmp, runs, offsetBase, 100)
}

func partitionRef(name, dir string) ncx.Partition {
	return testutil.PartitionRef(name, dir)
}

func contrib(partno, nrecords uint32) ncx.PartitionVariable {
	return testutil.Contribution(partno, nrecords)
}

func partitionIndex(name string, parts []ncx.Partition, run2part []uint32, contribs ...ncx.PartitionVariable) *ncx.Collection {
	return testutil.Partitioned(name, tmp, parts, run2part, contribs...)
}

func write(t *testing.T, store blobstore.BlobStore, dir string, c *ncx.Collection) {
	t.Helper()
	require.NoError(t, Write(context.Background(), store, c.Name, dir, c, ncx.CompressionZSTD))
}

// gfsFixture writes the gfs_0.5deg collection: three base partitions with
// run2part [0,0,1,1,2]. Partition i stores its records at offset i*1000.
func gfsFixture(t *testing.T, store blobstore.BlobStore) {
	t.Helper()
	for _, e := range testutil.GFS(tmp, 100) {
		write(t, store, e.Dir, e.Collection)
	}
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) PartitionOpened(collection string, partno int, d time.Duration, err error) {
	m.Called(collection, partno, err)
}

func (m *mockObserver) PartitionUnusable(collection string, partno int, err error) {
	m.Called(collection, partno, err)
}
