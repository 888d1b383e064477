package collection

import (
	"context"
	"time"

	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
)

// Index is an opened collection index: either *Base or *Partitioned.
type Index interface {
	// Name returns the collection name.
	Name() string
	// Path returns the store path of the index file.
	Path() string
	// Kind reports whether the index is a base or a partition index.
	Kind() ncx.Kind
	// Runtimes returns the master runtimes.
	Runtimes() []time.Time
	// NumGroups returns the number of groups.
	NumGroups() int
	// Lookup resolves a coordinate of a (group, variable) pair to the
	// location of its record.
	Lookup(ctx context.Context, group, variable int, c model.Coord) (model.Location, error)
	// Close releases the index and, for partition indexes, every opened
	// partition.
	Close() error

	// variable returns the record count of a variable, for contribution checks.
	variable(group, variable int) (nrecords uint32, ok bool)
}

var (
	_ Index = (*Base)(nil)
	_ Index = (*Partitioned)(nil)
)

func toTimes(millis []int64) []time.Time {
	out := make([]time.Time, len(millis))
	for i, ms := range millis {
		out[i] = time.UnixMilli(ms).UTC()
	}
	return out
}
