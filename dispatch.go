// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Validator is implemented by requests that can check themselves before
// dispatch.
type Validator interface {
	Validate() error
}

// call wraps the caller's listener for one dispatch. The first notification
// is delivered; later ones are dropped.
type call struct {
	action   string
	id       string
	start    time.Time
	delegate Listener[any]
	metrics  *metrics
	log      *slog.Logger
	fired    atomic.Bool
}

func (c *call) claim(kind string) bool {
	if c.fired.CompareAndSwap(false, true) {
		return true
	}
	c.log.Debug("dropping duplicate completion", "kind", kind)
	return false
}

func (c *call) OnResponse(v any) {
	if !c.claim("response") {
		return
	}
	elapsed := time.Since(c.start)
	c.metrics.finish(c.action, outcomeSuccess, elapsed)
	c.log.Debug("action completed", "duration", elapsed)
	c.delegate.OnResponse(v)
}

func (c *call) OnFailure(err error) {
	if !c.claim("failure") {
		return
	}
	var verr *ValidationError
	var herr *HandlerExecutionError
	if !errors.As(err, &verr) && !errors.As(err, &herr) {
		err = &HandlerExecutionError{Action: c.action, RequestID: c.id, Err: err}
	}
	elapsed := time.Since(c.start)
	c.metrics.finish(c.action, outcomeFailure, elapsed)
	c.log.Debug("action failed", "duration", elapsed, "error", err)
	c.delegate.OnFailure(err)
}

// Dispatch looks up the handler for action and hands it request. It is the
// single path every Execute variant goes through.
//
// Lookup failures (*NotFoundError) and ErrClosed are returned before any work
// starts. Everything else, including validation and handler panics, is
// reported to listener exactly once.
func (c *Client) Dispatch(ctx context.Context, action string, request any, listener Listener[any]) error {
	if State(c.state.Load()) != StateOpen {
		c.metrics.reject(action, outcomeRejected)
		return ErrClosed
	}
	h, err := c.registry.Lookup(action)
	if err != nil {
		c.metrics.reject(action, outcomeNotFound)
		c.log.Debug("no handler for action", "action", action)
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if listener == nil {
		listener = NewListener[any](nil, nil)
	}

	id := ulid.Make().String()
	cl := &call{
		action:   action,
		id:       id,
		start:    time.Now(),
		delegate: listener,
		metrics:  c.metrics,
		log:      c.log.With("component", "dispatch", "action", action, "request_id", id),
	}
	c.metrics.begin()

	if v, ok := request.(Validator); ok {
		if err := v.Validate(); err != nil {
			cl.OnFailure(&ValidationError{Action: action, Err: err})
			return nil
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				cl.OnFailure(fmt.Errorf("%w: %v", errTaskPanicked, r))
			}
		}()
		h.Execute(ctx, c, request, cl)
	}()
	return nil
}

// Execute dispatches request and returns a future for the response.
func Execute[Req, Resp any](ctx context.Context, c *Client, action Action[Req, Resp], request Req) (*Future[Resp], error) {
	return execute[Resp](ctx, c, action.Name(), request)
}

// ExecuteWithListener dispatches request and reports the outcome to l.
func ExecuteWithListener[Req, Resp any](ctx context.Context, c *Client, action Action[Req, Resp], request Req, l Listener[Resp]) error {
	return c.Dispatch(ctx, action.Name(), request, erase(l))
}

// ExecuteCluster is Execute for cluster actions.
func ExecuteCluster[Req, Resp any](ctx context.Context, c *Client, action ClusterAction[Req, Resp], request Req) (*Future[Resp], error) {
	return execute[Resp](ctx, c, action.Name(), request)
}

// ExecuteClusterWithListener is ExecuteWithListener for cluster actions.
func ExecuteClusterWithListener[Req, Resp any](ctx context.Context, c *Client, action ClusterAction[Req, Resp], request Req, l Listener[Resp]) error {
	return c.Dispatch(ctx, action.Name(), request, erase(l))
}

func execute[Resp any](ctx context.Context, c *Client, name string, request any) (*Future[Resp], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	f := newFuture[Resp](cancel)
	if err := c.Dispatch(ctx, name, request, erase[Resp](futureListener[Resp]{f: f})); err != nil {
		cancel()
		return nil, err
	}
	return f, nil
}
