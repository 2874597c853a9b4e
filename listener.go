// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"fmt"
)

// Listener receives the outcome of one dispatched call. The client delivers
// exactly one of OnResponse or OnFailure.
type Listener[T any] interface {
	OnResponse(T)
	OnFailure(error)
}

type funcListener[T any] struct {
	onResponse func(T)
	onFailure  func(error)
}

func (l funcListener[T]) OnResponse(v T) {
	if l.onResponse != nil {
		l.onResponse(v)
	}
}

func (l funcListener[T]) OnFailure(err error) {
	if l.onFailure != nil {
		l.onFailure(err)
	}
}

// NewListener builds a Listener from two functions. Either may be nil.
func NewListener[T any](onResponse func(T), onFailure func(error)) Listener[T] {
	return funcListener[T]{onResponse: onResponse, onFailure: onFailure}
}

// erased adapts a typed listener to the untyped form handlers receive.
type erased[T any] struct {
	typed Listener[T]
}

func erase[T any](l Listener[T]) Listener[any] {
	if l == nil {
		l = NewListener[T](nil, nil)
	}
	return erased[T]{typed: l}
}

func (l erased[T]) OnResponse(v any) {
	if v == nil {
		var zero T
		l.typed.OnResponse(zero)
		return
	}
	resp, ok := v.(T)
	if !ok {
		var want T
		l.typed.OnFailure(fmt.Errorf("%w: got %T, want %T", ErrResponseType, v, want))
		return
	}
	l.typed.OnResponse(resp)
}

func (l erased[T]) OnFailure(err error) { l.typed.OnFailure(err) }

// typed adapts the untyped listener a handler receives back to Resp.
type typed[T any] struct {
	untyped Listener[any]
}

func (l typed[T]) OnResponse(v T)      { l.untyped.OnResponse(v) }
func (l typed[T]) OnFailure(err error) { l.untyped.OnFailure(err) }
