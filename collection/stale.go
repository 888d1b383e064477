package collection

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/gribidx/blobstore"
)

// StalePartition describes a partition whose index changed after the
// partition collection was written.
type StalePartition struct {
	Partno   int
	Path     string
	Recorded time.Time
	// Current is the modification time in the store; zero when Err is set.
	Current time.Time
	Err     error
}

// StalePartitions compares each partition's recorded modification time with
// the store's. Partitions with no recorded time are skipped. The store must
// implement blobstore.Stater.
func (p *Partitioned) StalePartitions(ctx context.Context) ([]StalePartition, error) {
	st, ok := p.store.(blobstore.Stater)
	if !ok {
		return nil, newError(KindIO, p.name, p.path, "store cannot report modification times", errors.ErrUnsupported)
	}

	var stale []StalePartition
	for _, part := range p.partitions {
		if part.LastModified.IsZero() {
			continue
		}
		info, err := st.Stat(ctx, part.path)
		if err != nil {
			if !errors.Is(err, blobstore.ErrNotFound) {
				return nil, newError(KindIO, p.name, part.path, "stat partition", err)
			}
			stale = append(stale, StalePartition{
				Partno:   part.Number,
				Path:     part.path,
				Recorded: part.LastModified,
				Err:      classify(part.Name, part.path, err),
			})
			continue
		}
		if info.ModTime.UnixMilli() > part.LastModified.UnixMilli() {
			stale = append(stale, StalePartition{
				Partno:   part.Number,
				Path:     part.path,
				Recorded: part.LastModified,
				Current:  info.ModTime,
			})
		}
	}
	return stale, nil
}
