package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_Opens(t *testing.T) {
	c := NewController(Config{MaxConcurrentOpens: 1})
	ctx := context.Background()

	release, err := c.AcquireOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.OpensInFlight())

	// Second open blocks until the deadline.
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.AcquireOpen(tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // idempotent
	assert.Equal(t, int64(0), c.OpensInFlight())

	release2, err := c.AcquireOpen(ctx)
	require.NoError(t, err)
	release2()
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	// Larger than the burst must still succeed.
	require.NoError(t, c.WaitIO(context.Background(), 1<<20+10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.WaitIO(ctx, 1<<20))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireMemory(1<<40))
	c.ReleaseMemory(1)
	assert.Equal(t, int64(0), c.MemoryUsage())
	release, err := c.AcquireOpen(context.Background())
	require.NoError(t, err)
	release()
	require.NoError(t, c.WaitIO(context.Background(), 10))
}
