package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsTasks(t *testing.T) {
	p := New(4)
	var n atomic.Int32

	for i := 0; i < 3; i++ {
		require.True(t, p.Submit("count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		}))
	}
	require.True(t, p.Submit("fails", func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.True(t, p.Submit("panics", func(ctx context.Context) error {
		panic("boom")
	}))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(3), n.Load())
}

func TestPoolQueuesBursts(t *testing.T) {
	p := New(2)
	var n atomic.Int32

	for i := 0; i < 100; i++ {
		require.True(t, p.Submit("burst", func(ctx context.Context) error {
			n.Add(1)
			return nil
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(100), n.Load())
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	p := newPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, p.Submit("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	var queued atomic.Bool
	require.True(t, p.Submit("queued", func(ctx context.Context) error {
		queued.Store(true)
		return nil
	}))
	assert.False(t, p.Submit("dropped", func(ctx context.Context) error { return nil }))

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, queued.Load())
	assert.False(t, p.Submit("after shutdown", func(ctx context.Context) error { return nil }))
}

func TestPoolShutdownCancelsStragglers(t *testing.T) {
	p := New(1)
	started := make(chan struct{})

	require.True(t, p.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}
