// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/admin/cache"
)

// DefaultQueueSize bounds the number of tasks waiting for a worker.
const DefaultQueueSize = 1024

type poolTask struct {
	ctx   context.Context
	run   func(context.Context)
	abort func(error)
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Workers   int
	Queued    int
	Active    int64
	Completed uint64
	Aborted   uint64
}

// Pool is a fixed set of workers reading a bounded queue.
//
// Shutdown stops intake and lets queued work drain. ShutdownNow additionally
// cancels the context of running tasks and fails queued ones with
// ErrPoolTerminated through their abort callback.
type Pool struct {
	name    string
	workers int
	queue   chan poolTask
	scratch *cache.Scratch
	log     *slog.Logger

	quit     chan struct{}
	quitOnce sync.Once

	// mu guards closing the queue against in-flight Submit sends.
	mu          sync.RWMutex
	queueClosed bool

	// takeMu is held while taking a task off the queue, so ShutdownNow
	// can drain it without racing the workers.
	takeMu sync.Mutex

	ctx        context.Context
	cancel     context.CancelFunc
	group      errgroup.Group
	terminated chan struct{}

	active    atomic.Int64
	completed atomic.Uint64
	aborted   atomic.Uint64
}

// NewPool starts a pool. A non-positive workers uses GOMAXPROCS and a
// non-positive queueSize uses DefaultQueueSize. Each worker owns one slot in
// scratch for as long as it runs.
func NewPool(name string, workers, queueSize int, scratch *cache.Scratch, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if scratch == nil {
		scratch = cache.Default.Scratch
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		name:       name,
		workers:    workers,
		queue:      make(chan poolTask, queueSize),
		scratch:    scratch,
		log:        logger.With("component", "pool", "pool", name),
		quit:       make(chan struct{}),
		terminated: make(chan struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	for i := 0; i < workers; i++ {
		owner := fmt.Sprintf("%s-%d", name, i)
		p.group.Go(func() error {
			p.work(owner)
			return nil
		})
	}
	go func() {
		_ = p.group.Wait()
		p.cancel()
		close(p.terminated)
		p.log.Debug("pool terminated", "completed", p.completed.Load(), "aborted", p.aborted.Load())
	}()
	return p
}

// Submit queues run. abort, if not nil, is called instead of run when the
// task is dropped or panics. Submit blocks while the queue is full, until ctx
// is done or the pool shuts down.
func (p *Pool) Submit(ctx context.Context, run func(context.Context), abort func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.queueClosed {
		return ErrPoolShutdown
	}
	select {
	case <-p.quit:
		return ErrPoolShutdown
	default:
	}

	t := poolTask{ctx: ctx, run: run, abort: abort}
	select {
	case p.queue <- t:
		return nil
	case <-p.quit:
		return ErrPoolShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(owner string) {
	defer p.scratch.Release(owner)
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.runTask(owner, t)
	}
}

func (p *Pool) next() (poolTask, bool) {
	p.takeMu.Lock()
	defer p.takeMu.Unlock()
	t, ok := <-p.queue
	return t, ok
}

func (p *Pool) runTask(owner string, t poolTask) {
	if p.ctx.Err() != nil {
		p.abort(t, ErrPoolTerminated)
		return
	}
	if err := t.ctx.Err(); err != nil {
		p.abort(t, err)
		return
	}

	p.active.Add(1)
	defer p.active.Add(-1)

	ctx, cancel := context.WithCancel(t.ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()
	defer cancel()
	ctx = cache.WithScratch(ctx, p.scratch, owner)

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task panicked", "worker", owner, "panic", r, "stack", string(debug.Stack()))
			p.abort(t, fmt.Errorf("%w: %v", errTaskPanicked, r))
		}
	}()
	t.run(ctx)
	p.completed.Add(1)
}

func (p *Pool) abort(t poolTask, err error) {
	p.aborted.Add(1)
	if t.abort == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("abort callback panicked", "panic", r)
		}
	}()
	t.abort(err)
}

// Shutdown stops accepting tasks. Queued and running tasks still complete.
func (p *Pool) Shutdown() {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.queueClosed {
		p.queueClosed = true
		close(p.queue)
		p.log.Debug("pool shutdown requested", "queued", len(p.queue))
	}
}

// ShutdownNow shuts the pool down, cancels running tasks and aborts queued
// ones with ErrPoolTerminated. It returns how many queued tasks it aborted.
func (p *Pool) ShutdownNow() int {
	p.Shutdown()

	p.takeMu.Lock()
	defer p.takeMu.Unlock()
	p.cancel()

	dropped := 0
	for t := range p.queue {
		p.abort(t, ErrPoolTerminated)
		dropped++
	}
	if dropped > 0 {
		p.log.Debug("queued tasks aborted", "count", dropped)
	}
	return dropped
}

// AwaitTermination waits up to timeout for every worker to exit and reports
// whether they did.
func (p *Pool) AwaitTermination(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.terminated:
		return true
	case <-timer.C:
		return false
	}
}

// Name returns the pool name. Workers are named "<name>-<i>".
func (p *Pool) Name() string { return p.name }

// Terminated is closed once every worker has exited.
func (p *Pool) Terminated() <-chan struct{} { return p.terminated }

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}

// IsTerminated reports whether every worker has exited.
func (p *Pool) IsTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int { return len(p.queue) }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Aborted:   p.aborted.Load(),
	}
}
