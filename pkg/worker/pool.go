package worker

import (
	"context"
	"fmt"
	"sync"

	"media-redirect/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// queuePerWorker sizes the backlog a burst may build up before tasks are dropped
const queuePerWorker = 64

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Pool runs fire-and-forget side effects on a fixed set of workers fed by a bounded
// queue. Task contexts are detached from requests and are only cancelled when Shutdown
// gives up waiting.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	tasks  chan task

	mu     sync.RWMutex
	closed bool
}

func New(limit int) *Pool {
	return newPool(limit, limit*queuePerWorker)
}

func newPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{ctx: ctx, cancel: cancel, tasks: make(chan task, queue)}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for t := range p.tasks {
		if err := run(p.ctx, t.fn); err != nil {
			logger.Warnf("background task %s failed: %v", t.name, err)
		}
	}
	return nil
}

// Submit queues fn. It returns false, dropping the task, when the queue is full or the
// pool is shut down. Errors and panics are logged and never propagate.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logger.Warnf("worker pool closed, dropping %s", name)
		return false
	}

	select {
	case p.tasks <- task{name: name, fn: fn}:
		return true
	default:
		logger.Warnf("worker pool queue full, dropping %s", name)
		return false
	}
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Shutdown stops accepting tasks and waits for queued and running ones until ctx is
// done, then cancels them.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
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
