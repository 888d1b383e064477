// Package collection builds and queries collection indexes.
//
// A base index (*Base) maps the coordinates of every variable of one archive
// collection to record locations. A partition index (*Partitioned) joins
// many child indexes, one per partition, through a master run to partition
// map and per-variable contribution lists. Children may themselves be
// partition indexes.
//
// Construction decodes the index file once into an immutable value; the
// partitions it references are opened on first lookup and cached until
// Close. A partition that fails to open with a format or not-found error is
// excluded from lookups for the lifetime of the parent, and the remaining
// partitions keep serving.
//
// Lookup against a partition index picks, among the usable partitions that
// cover the requested master run, the one with the highest partition
// number. A contribution recorded as fully missing resolves to ErrMissing
// without opening the partition; no covering partition resolves to
// ErrNotFound.
//
//	idx, err := collection.Open(ctx, store, "gfs_0.5deg", "gfs")
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	loc, err := idx.Lookup(ctx, 0, 2, model.Coord{Run: 3})
package collection
