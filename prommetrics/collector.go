// Package prommetrics exports gribidx operational metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	idx, _ := gribidx.Open(ctx, backend, dir, name,
//	    gribidx.WithMetricsCollector(prommetrics.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prommetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/gribidx"
)

// Collector implements gribidx.MetricsCollector on Prometheus metrics.
type Collector struct {
	opLatency *prometheus.HistogramVec
	opens     *prometheus.CounterVec
	unusable  prometheus.Counter
	cacheHits prometheus.Counter
	cacheMiss prometheus.Counter
	evictions prometheus.Counter
}

var _ gribidx.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gribidx_operation_latency_seconds",
			Help:    "Latency of index operations",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op", "status"}),
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gribidx_index_opens_total",
			Help: "Total top-level index opens by index kind",
		}, []string{"kind", "status"}),
		unusable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gribidx_unusable_partitions_total",
			Help: "Total partitions excluded from lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gribidx_cache_hits_total",
			Help: "Total cache acquires served by an open index",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gribidx_cache_misses_total",
			Help: "Total cache acquires that opened an index",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gribidx_cache_evictions_total",
			Help: "Total indexes evicted from the cache",
		}),
	}

	reg.MustRegister(c.opLatency, c.opens, c.unusable, c.cacheHits, c.cacheMiss, c.evictions)
	return c
}

// status maps a lookup error to a low-cardinality label.
func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gribidx.ErrMissing):
		return "missing"
	case errors.Is(err, gribidx.ErrNotFound) && !errors.Is(err, gribidx.ErrFormat):
		return "not_found"
	default:
		return "error"
	}
}

func (c *Collector) RecordOpen(kind string, d time.Duration, err error) {
	if kind == "" {
		kind = "unknown"
	}
	st := status(err)
	c.opens.WithLabelValues(kind, st).Inc()
	c.opLatency.WithLabelValues("open", st).Observe(d.Seconds())
}

func (c *Collector) RecordLookup(d time.Duration, err error) {
	c.opLatency.WithLabelValues("lookup", status(err)).Observe(d.Seconds())
}

func (c *Collector) RecordPartitionOpen(d time.Duration, err error) {
	c.opLatency.WithLabelValues("partition_open", status(err)).Observe(d.Seconds())
}

func (c *Collector) RecordPartitionUnusable() { c.unusable.Inc() }
func (c *Collector) RecordCacheHit()          { c.cacheHits.Inc() }
func (c *Collector) RecordCacheMiss()         { c.cacheMiss.Inc() }
func (c *Collector) RecordEviction()          { c.evictions.Inc() }
