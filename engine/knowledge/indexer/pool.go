package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tubechat/tubechat/pkg/logger"
	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed = errors.New("indexer: pool is shut down")
	ErrQueueFull  = errors.New("indexer: queue is full")
)

// Task is a unit of background work. It receives the pool's context, never the submitter's.
type Task func(ctx context.Context)

// Pool runs detached tasks with bounded concurrency and a bounded backlog.
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	workers *semaphore.Weighted
	pending *semaphore.Weighted
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// NewPool creates a pool whose tasks inherit ctx values but not its cancellation.
func NewPool(ctx context.Context, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Pool{
		ctx:     poolCtx,
		cancel:  cancel,
		workers: semaphore.NewWeighted(int64(workers)),
		pending: semaphore.NewWeighted(int64(workers + queueSize)),
	}
}

// Submit schedules task without waiting for it. It fails fast when the pool
// is closed or the backlog is full.
func (p *Pool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if !p.pending.TryAcquire(1) {
		return ErrQueueFull
	}
	p.wg.Go(func() {
		defer p.pending.Release(1)
		if err := p.workers.Acquire(p.ctx, 1); err != nil {
			logger.FromContext(p.ctx).Warn("Background task dropped", "task", name, "error", err)
			return
		}
		defer p.workers.Release(1)
		p.run(name, task)
	})
	return nil
}

func (p *Pool) run(name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(p.ctx).Error("Background task panicked", "task", name, "panic", fmt.Sprint(r))
		}
	}()
	task(p.ctx)
}

// Shutdown stops intake and waits for running and queued tasks. When ctx
// expires first, in-flight tasks are canceled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
