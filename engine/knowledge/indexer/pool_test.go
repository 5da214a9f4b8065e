package indexer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	t.Run("Should run all submitted tasks", func(t *testing.T) {
		pool := NewPool(context.Background(), 2, 8)
		var ran atomic.Int32
		for range 5 {
			require.NoError(t, pool.Submit("count", func(context.Context) { ran.Add(1) }))
		}
		require.NoError(t, pool.Shutdown(context.Background()))
		assert.Equal(t, int32(5), ran.Load())
	})
	t.Run("Should reject work when the backlog is full", func(t *testing.T) {
		pool := NewPool(context.Background(), 1, 0)
		release := make(chan struct{})
		started := make(chan struct{})
		require.NoError(t, pool.Submit("block", func(context.Context) {
			close(started)
			<-release
		}))
		<-started
		err := pool.Submit("extra", func(context.Context) {})
		assert.ErrorIs(t, err, ErrQueueFull)
		close(release)
		require.NoError(t, pool.Shutdown(context.Background()))
	})
	t.Run("Should reject work after shutdown", func(t *testing.T) {
		pool := NewPool(context.Background(), 1, 1)
		require.NoError(t, pool.Shutdown(context.Background()))
		assert.ErrorIs(t, pool.Submit("late", func(context.Context) {}), ErrPoolClosed)
	})
	t.Run("Should not inherit the submitter cancellation", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		pool := NewPool(parent, 1, 1)
		cancel()
		var sawErr atomic.Bool
		require.NoError(t, pool.Submit("detached", func(ctx context.Context) {
			sawErr.Store(ctx.Err() != nil)
		}))
		require.NoError(t, pool.Shutdown(context.Background()))
		assert.False(t, sawErr.Load())
	})
	t.Run("Should cancel tasks when shutdown times out", func(t *testing.T) {
		pool := NewPool(context.Background(), 1, 1)
		started := make(chan struct{})
		require.NoError(t, pool.Submit("slow", func(ctx context.Context) {
			close(started)
			<-ctx.Done()
		}))
		<-started
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
	})
	t.Run("Should survive a panicking task", func(t *testing.T) {
		pool := NewPool(context.Background(), 1, 1)
		require.NoError(t, pool.Submit("boom", func(context.Context) { panic("boom") }))
		require.NoError(t, pool.Shutdown(context.Background()))
	})
}
