// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"sessionkey/internal/log"
)

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool runs CPU bound work on a fixed number of workers behind a bounded
// queue. Work beyond the queue depth is refused with ErrBusy instead of
// waiting.
type Pool struct {
	jobs    chan job
	workers int

	mu     sync.RWMutex // Guards closed against concurrent sends.
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines sharing a queue of queueDepth jobs.
func NewPool(workers, queueDepth int) *Pool {
	workers = max(workers, 1)
	queueDepth = max(queueDepth, 0)

	p := &Pool{
		jobs:    make(chan job, queueDepth),
		workers: workers,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	log.Debugf("Pool: started %d workers, queue depth %d", workers, queueDepth)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.done <- run(j)
	}
}

// run executes one job, turning a panic into an InternalError so a bad
// clip cannot take the worker down.
func run(j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Pool: recovered from panic: %v\n%s", r, debug.Stack())
			err = &InternalError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return j.fn(j.ctx)
}

// Do queues fn and waits for it to finish or for ctx to end. It returns
// ErrBusy without waiting when the queue is full. A cancelled job still
// runs to its next cancellation check before the worker is free.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	select {
	case p.jobs <- j:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		return ErrBusy
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.jobs)
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops accepting work and waits for queued jobs to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
