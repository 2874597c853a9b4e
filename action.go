// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

// Action names one kind of call and ties it to its request and response
// types. The name is the registry key; it is never parsed.
type Action[Req, Resp any] struct {
	name       string
	newRequest func() Req
}

// NewAction describes an action. newRequest builds the request a
// RequestBuilder starts from; nil means the zero value.
func NewAction[Req, Resp any](name string, newRequest func() Req) Action[Req, Resp] {
	return Action[Req, Resp]{name: name, newRequest: newRequest}
}

// Name returns the action identifier.
func (a Action[Req, Resp]) Name() string { return a.name }

// NewRequest returns a fresh request with the action's defaults.
func (a Action[Req, Resp]) NewRequest() Req {
	if a.newRequest == nil {
		var zero Req
		return zero
	}
	return a.newRequest()
}

// ClusterAction is an Action that targets the cluster as a whole. It is
// dispatched exactly like any other action.
type ClusterAction[Req, Resp any] struct {
	Action[Req, Resp]
}

// NewClusterAction describes a cluster action.
func NewClusterAction[Req, Resp any](name string, newRequest func() Req) ClusterAction[Req, Resp] {
	return ClusterAction[Req, Resp]{Action: NewAction[Req, Resp](name, newRequest)}
}

// Registration is one registry entry.
type Registration struct {
	Name    string
	Handler Handler
}

// Bind pairs an action name with the handler that executes it.
func Bind(name string, h Handler) Registration {
	return Registration{Name: name, Handler: h}
}
