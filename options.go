package gribidx

import (
	"log/slog"
)

type options struct {
	metricsCollector   MetricsCollector
	logger             *Logger
	maxConcurrentOpens int64
	ioLimit            int64
	blockCacheBytes    int64
	blockSize          int64
}

// Option configures Open and NewCache.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &gribidx.BasicMetricsCollector{}
//	idx, _ := gribidx.Open(ctx, gribidx.Local("/data"), "gfs", "gfs_0.5deg", gribidx.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Lookups: %d, Avg latency: %dns\n", stats.LookupCount, stats.LookupAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMaxConcurrentOpens bounds the number of partition indexes being opened
// at the same time. Zero means unbounded.
func WithMaxConcurrentOpens(n int) Option {
	return func(o *options) {
		o.maxConcurrentOpens = int64(max(n, 0))
	}
}

// WithIOLimit limits index read throughput in bytes per second.
// Zero means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = max(bytesPerSec, 0)
	}
}

// WithBlockCache caches index bytes read from a Remote backend in memory,
// up to capacity bytes, in blocks of blockSize bytes (default 64KB).
// It has no effect on Local backends, which are memory mapped.
func WithBlockCache(capacity int64, blockSize ...int64) Option {
	return func(o *options) {
		o.blockCacheBytes = max(capacity, 0)
		if len(blockSize) > 0 {
			o.blockSize = blockSize[0]
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
