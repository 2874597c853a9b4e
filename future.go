// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"sync"
	"sync/atomic"
)

// Future is the pending result of a call made with Execute.
type Future[T any] struct {
	done      chan struct{}
	once      sync.Once
	value     T
	err       error
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func newFuture[T any](cancel context.CancelFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

func (f *Future[T]) complete(v T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.value, f.err = v, err
		completed = true
		close(f.done)
	})
	if completed && f.cancel != nil {
		f.cancel()
	}
	return completed
}

// Get blocks until the call completes or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the call completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Poll returns the result without blocking. done is false while the call is
// still running.
func (f *Future[T]) Poll() (value T, done bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Cancel completes the future with context.Canceled and cancels the context
// the handler runs with. It returns false if the call already completed.
// Work already running may finish anyway; its result is discarded.
func (f *Future[T]) Cancel() bool {
	var zero T
	if !f.complete(zero, context.Canceled) {
		return false
	}
	f.cancelled.Store(true)
	return true
}

// IsCancelled reports whether Cancel won the race to complete the future.
func (f *Future[T]) IsCancelled() bool { return f.cancelled.Load() }

type futureListener[T any] struct {
	f *Future[T]
}

func (l futureListener[T]) OnResponse(v T) { l.f.complete(v, nil) }

func (l futureListener[T]) OnFailure(err error) {
	var zero T
	l.f.complete(zero, err)
}
