// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"fmt"
	"sort"
)

// Registry maps action names to handlers. It is immutable once NewRegistry
// returns, so lookups need no locking.
type Registry struct {
	handlers map[string]Handler
	names    []string
}

// NewRegistry builds a registry from regs. It fails on an empty name, a nil
// handler or a name registered twice.
func NewRegistry(regs ...Registration) (*Registry, error) {
	handlers := make(map[string]Handler, len(regs))
	for _, reg := range regs {
		if reg.Name == "" {
			return nil, fmt.Errorf("%w: empty action name", ErrInvalidRegistration)
		}
		if reg.Handler == nil {
			return nil, fmt.Errorf("%w: nil handler for %q", ErrInvalidRegistration, reg.Name)
		}
		if _, ok := handlers[reg.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAction, reg.Name)
		}
		handlers[reg.Name] = reg.Handler
	}

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{handlers: handlers, names: names}, nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, &NotFoundError{Action: name}
	}
	return h, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered actions.
func (r *Registry) Len() int { return len(r.handlers) }
