// Package gribidx provides random access into large archives of gridded
// records through time-partitioned collection indexes.
//
// A collection index (.ncx) lists, for every variable of a collection, where
// each record lives: archive file, byte offset and length. Partition indexes
// split a collection by model run and reference base indexes (or further
// partition indexes) that are opened lazily on first use.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	idx, _ := gribidx.Open(ctx, gribidx.Local("/data/idx"), "gfs", "gfs_0.5deg")
//	defer idx.Close()
//
//	loc, _ := idx.Lookup(ctx, 0, 3, model.Coord{Run: 3, Time: 2})
//	fmt.Println(loc.Path, loc.Offset, loc.Length)
//
// Cloud mode:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("idx/"))
//	idx, _ := gribidx.Open(ctx, gribidx.Remote(store), "gfs", "gfs_0.5deg",
//	    gribidx.WithBlockCache(64<<20))
//
// # Lookup Results
//
// A lookup either resolves to a location, reports the record as known
// missing (ErrMissing), or reports that no partition covers the coordinate
// (ErrNotFound). Corrupt or inconsistent partitions are skipped for the
// lifetime of the index and the next older partition is consulted.
//
//	switch _, err := idx.Lookup(ctx, g, v, c); {
//	case errors.Is(err, gribidx.ErrMissing):
//	case errors.Is(err, gribidx.ErrNotFound):
//	}
//
// # Caching Open Indexes
//
// Cache keeps a bounded set of opened indexes and hands out reference
// counted handles. An evicted index is closed once its last handle is
// released.
//
//	c, _ := gribidx.NewCache(gribidx.Local("/data/idx"), 128)
//	h, _ := c.Acquire(ctx, "gfs", "gfs_0.5deg")
//	defer h.Release()
//
// # Observability
//
// Structured logging goes through log/slog (WithLogger, WithLogLevel).
// Operational metrics go through a MetricsCollector; see package prommetrics
// for a Prometheus implementation.
package gribidx
