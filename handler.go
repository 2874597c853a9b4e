// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"fmt"
)

// Handler executes one kind of action. Execute must report the outcome to
// listener exactly once, either before returning or later from another
// goroutine. It must not block on network I/O on the calling goroutine.
type Handler interface {
	Execute(ctx context.Context, c *Client, request any, listener Listener[any])
}

// HandlerFunc is a synchronous handler. The client runs it on its worker
// pool, so it may block.
type HandlerFunc[Req, Resp any] func(ctx context.Context, c *Client, req Req) (Resp, error)

// Execute implements Handler.
func (f HandlerFunc[Req, Resp]) Execute(ctx context.Context, c *Client, request any, listener Listener[any]) {
	req, ok := request.(Req)
	if !ok {
		listener.OnFailure(requestTypeError[Req](request))
		return
	}

	run := func(ctx context.Context) {
		resp, err := f(ctx, c, req)
		if err != nil {
			listener.OnFailure(err)
			return
		}
		listener.OnResponse(resp)
	}
	if err := c.Pool().Submit(ctx, run, listener.OnFailure); err != nil {
		listener.OnFailure(err)
	}
}

// AsyncHandlerFunc is a handler that manages its own asynchrony. It is called
// on the dispatching goroutine and completes through l.
type AsyncHandlerFunc[Req, Resp any] func(ctx context.Context, c *Client, req Req, l Listener[Resp])

// Execute implements Handler.
func (f AsyncHandlerFunc[Req, Resp]) Execute(ctx context.Context, c *Client, request any, listener Listener[any]) {
	req, ok := request.(Req)
	if !ok {
		listener.OnFailure(requestTypeError[Req](request))
		return
	}
	f(ctx, c, req, typed[Resp]{untyped: listener})
}

func requestTypeError[Req any](got any) error {
	var want Req
	return fmt.Errorf("%w: got %T, want %T", ErrRequestType, got, want)
}
