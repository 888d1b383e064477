package gribidx

import (
	"context"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordOpen is called after each top-level index open.
	// kind is "base" or "partition", empty when the open failed.
	RecordOpen(kind string, duration time.Duration, err error)

	// RecordLookup is called after each lookup.
	RecordLookup(duration time.Duration, err error)

	// RecordPartitionOpen is called after each lazy partition open.
	RecordPartitionOpen(duration time.Duration, err error)

	// RecordPartitionUnusable is called when a partition is excluded from
	// lookups for the lifetime of its parent index.
	RecordPartitionUnusable()

	// RecordCacheHit is called when Cache.Acquire finds an open index.
	RecordCacheHit()

	// RecordCacheMiss is called when Cache.Acquire has to open an index.
	RecordCacheMiss()

	// RecordEviction is called when an index leaves the cache.
	RecordEviction()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(string, time.Duration, error)  {}
func (NoopMetricsCollector) RecordLookup(time.Duration, error)        {}
func (NoopMetricsCollector) RecordPartitionOpen(time.Duration, error) {}
func (NoopMetricsCollector) RecordPartitionUnusable()                 {}
func (NoopMetricsCollector) RecordCacheHit()                          {}
func (NoopMetricsCollector) RecordCacheMiss()                         {}
func (NoopMetricsCollector) RecordEviction()                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount           atomic.Int64
	OpenErrors          atomic.Int64
	LookupCount         atomic.Int64
	LookupErrors        atomic.Int64
	LookupTotalNanos    atomic.Int64
	PartitionOpenCount  atomic.Int64
	PartitionOpenErrors atomic.Int64
	UnusablePartitions  atomic.Int64
	CacheHits           atomic.Int64
	CacheMisses         atomic.Int64
	Evictions           atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(_ string, _ time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
// Unresolved lookups (missing, not found) count as errors.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
}

// RecordPartitionOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartitionOpen(_ time.Duration, err error) {
	b.PartitionOpenCount.Add(1)
	if err != nil {
		b.PartitionOpenErrors.Add(1)
	}
}

// RecordPartitionUnusable implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartitionUnusable() { b.UnusablePartitions.Add(1) }

// RecordCacheHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheHit() { b.CacheHits.Add(1) }

// RecordCacheMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheMiss() { b.CacheMisses.Add(1) }

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() { b.Evictions.Add(1) }

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:           b.OpenCount.Load(),
		OpenErrors:          b.OpenErrors.Load(),
		LookupCount:         b.LookupCount.Load(),
		LookupErrors:        b.LookupErrors.Load(),
		LookupAvgNanos:      b.getAvgLookupNanos(),
		PartitionOpenCount:  b.PartitionOpenCount.Load(),
		PartitionOpenErrors: b.PartitionOpenErrors.Load(),
		UnusablePartitions:  b.UnusablePartitions.Load(),
		CacheHits:           b.CacheHits.Load(),
		CacheMisses:         b.CacheMisses.Load(),
		Evictions:           b.Evictions.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgLookupNanos() int64 {
	count := b.LookupCount.Load()
	if count == 0 {
		return 0
	}
	return b.LookupTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount           int64
	OpenErrors          int64
	LookupCount         int64
	LookupErrors        int64
	LookupAvgNanos      int64
	PartitionOpenCount  int64
	PartitionOpenErrors int64
	UnusablePartitions  int64
	CacheHits           int64
	CacheMisses         int64
	Evictions           int64
}

// observer forwards partition events from the collection package to the
// configured logger and metrics collector.
type observer struct {
	logger  *Logger
	metrics MetricsCollector
}

func (o observer) PartitionOpened(collection string, partno int, d time.Duration, err error) {
	o.metrics.RecordPartitionOpen(d, err)
	o.logger.LogPartitionOpen(context.Background(), collection, partno, d, err)
}

func (o observer) PartitionUnusable(string, int, error) {
	o.metrics.RecordPartitionUnusable()
}
