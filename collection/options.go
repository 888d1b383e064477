package collection

import (
	"context"
	"log/slog"
	"time"
)

// Limiter bounds partition opens and index read bandwidth.
// *resource.Controller satisfies it.
type Limiter interface {
	AcquireOpen(ctx context.Context) (func(), error)
	WaitIO(ctx context.Context, bytes int) error
}

// Observer receives partition lifecycle events.
type Observer interface {
	PartitionOpened(collection string, partno int, d time.Duration, err error)
	PartitionUnusable(collection string, partno int, err error)
}

type noopObserver struct{}

func (noopObserver) PartitionOpened(string, int, time.Duration, error) {}
func (noopObserver) PartitionUnusable(string, int, error)              {}

type noopLimiter struct{}

func (noopLimiter) AcquireOpen(context.Context) (func(), error) { return func() {}, nil }
func (noopLimiter) WaitIO(context.Context, int) error           { return nil }

type options struct {
	logger   *slog.Logger
	limiter  Limiter
	observer Observer
	// chain holds the index paths of the collections above this one.
	chain []string
}

// Option configures index construction.
type Option func(*options)

// WithLogger sets the logger for warnings about dropped contributions and
// unusable partitions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLimiter bounds concurrent partition opens and read bandwidth.
func WithLimiter(l Limiter) Option {
	return func(o *options) {
		if l != nil {
			o.limiter = l
		}
	}
}

// WithObserver receives partition open and unusable events.
func WithObserver(ob Observer) Option {
	return func(o *options) {
		if ob != nil {
			o.observer = ob
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:   slog.New(slog.DiscardHandler),
		limiter:  noopLimiter{},
		observer: noopObserver{},
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}
