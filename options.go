// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/admin/cache"
	"github.com/luxfi/admin/transport"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	actions    []Registration
	transport  transport.Transport
	logger     *slog.Logger
	shared     *cache.Set
	registerer prometheus.Registerer
}

func newOptions(opts ...Option) options {
	o := options{
		logger: slog.Default(),
		shared: cache.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithActions adds registrations to the client's registry. It may be given
// more than once.
func WithActions(regs ...Registration) Option {
	return func(o *options) {
		o.actions = append(o.actions, regs...)
	}
}

// WithTransport uses t instead of the transport named by transport.type.
// The client closes t on Close.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSharedState replaces cache.Default with s.
func WithSharedState(s *cache.Set) Option {
	return func(o *options) {
		if s != nil {
			o.shared = s
		}
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
