// Package testutil provides testing utilities for gribidx.
//
// This package is intended for use in tests and benchmarks only.
// It builds in-memory collection indexes that callers write with
// collection.Write, and generates random collections from a seeded RNG.
//
// # Fixtures
//
//	for _, e := range testutil.GFS(testutil.Temperature, 4096) {
//		_ = collection.Write(ctx, store, e.Collection.Name, e.Dir, e.Collection, ncx.CompressionZSTD)
//	}
//
// # Random Collections
//
//	rng := testutil.NewRNG(seed)
//	c := rng.Base("hrrr", model.Shape{Runs: 4, Times: 6, Levels: 3, Ens: 1}, 0.2)
package testutil
