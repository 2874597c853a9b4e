// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Dispatch once Close has been called.
	ErrClosed = errors.New("admin: client is closed")

	// ErrDuplicateAction is returned when two registrations share a name.
	ErrDuplicateAction = errors.New("admin: action registered twice")

	// ErrInvalidRegistration is returned for an empty name or nil handler.
	ErrInvalidRegistration = errors.New("admin: invalid action registration")

	// ErrPoolShutdown is returned by Pool.Submit after Shutdown.
	ErrPoolShutdown = errors.New("admin: worker pool is shut down")

	// ErrPoolTerminated is delivered to queued tasks dropped by ShutdownNow.
	ErrPoolTerminated = errors.New("admin: worker pool terminated before task ran")

	// ErrRequestType is returned when a handler receives a request of the wrong type.
	ErrRequestType = errors.New("admin: unexpected request type")

	// ErrResponseType is returned when a listener receives a response of the wrong type.
	ErrResponseType = errors.New("admin: unexpected response type")

	errTaskPanicked = errors.New("task panicked")
)

// NotFoundError reports that no handler is registered for an action.
type NotFoundError struct {
	Action string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("admin: no handler registered for action %q", e.Action)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConfigurationError is returned by New when the client cannot be built.
type ConfigurationError struct {
	Source string
	Key    string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("admin: configuration [%s] %s: %v", e.Source, e.Key, e.Err)
	}
	return fmt.Sprintf("admin: configuration [%s]: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// HandlerExecutionError wraps any failure raised while a handler executes.
type HandlerExecutionError struct {
	Action    string
	RequestID string
	Err       error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("admin: action %s [%s] failed: %v", e.Action, e.RequestID, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Err }

// ValidationError reports a request rejected by its Validate method.
type ValidationError struct {
	Action string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("admin: invalid request for %s: %v", e.Action, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ShutdownError describes a failed Close step. Close logs these and never
// returns them.
type ShutdownError struct {
	Step string
	Err  error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("admin: shutdown step %q: %v", e.Step, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }
