// Package resource implements the Controller that bounds the resources spent
// opening collection indexes.
//
// Three resource types are governed:
//
//   - Memory: bytes held by the block cache (non-blocking, fail-fast)
//   - Opens: concurrent lazy partition opens (weighted semaphore)
//   - IO: index bytes read per second (token bucket)
//
// # Memory
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	if err := rc.AcquireMemory(n); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides whether to cache
//	}
//	defer rc.ReleaseMemory(n)
//
// # Partition Opens
//
// Opening a partition reads and decodes its whole index. Fleets of archives
// can reference thousands of partitions, so opens are bounded:
//
//	release, err := rc.AcquireOpen(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// # IO
//
//	if err := rc.WaitIO(ctx, len(payload)); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
