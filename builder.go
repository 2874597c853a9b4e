// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import "context"

// RequestBuilder populates a request for one action and executes it through
// the client that created it.
type RequestBuilder[Req, Resp any] struct {
	client  *Client
	action  Action[Req, Resp]
	request Req
}

// PrepareExecute returns a builder starting from action.NewRequest().
func PrepareExecute[Req, Resp any](c *Client, action Action[Req, Resp]) *RequestBuilder[Req, Resp] {
	return &RequestBuilder[Req, Resp]{client: c, action: action, request: action.NewRequest()}
}

// PrepareExecuteCluster is PrepareExecute for cluster actions.
func PrepareExecuteCluster[Req, Resp any](c *Client, action ClusterAction[Req, Resp]) *RequestBuilder[Req, Resp] {
	return PrepareExecute(c, action.Action)
}

// With applies mutators to the request in order.
func (b *RequestBuilder[Req, Resp]) With(mutators ...func(*Req)) *RequestBuilder[Req, Resp] {
	for _, m := range mutators {
		m(&b.request)
	}
	return b
}

// Request returns the request built so far.
func (b *RequestBuilder[Req, Resp]) Request() Req { return b.request }

// Execute is Execute(ctx, client, action, b.Request()).
func (b *RequestBuilder[Req, Resp]) Execute(ctx context.Context) (*Future[Resp], error) {
	return Execute(ctx, b.client, b.action, b.request)
}

// ExecuteWithListener is ExecuteWithListener(ctx, client, action, b.Request(), l).
func (b *RequestBuilder[Req, Resp]) ExecuteWithListener(ctx context.Context, l Listener[Resp]) error {
	return ExecuteWithListener(ctx, b.client, b.action, b.request, l)
}

// Get executes the request and waits for the response.
func (b *RequestBuilder[Req, Resp]) Get(ctx context.Context) (Resp, error) {
	f, err := b.Execute(ctx)
	if err != nil {
		var zero Resp
		return zero, err
	}
	return f.Get(ctx)
}
