// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes recorded in luxadmin_dispatch_total.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNotFound = "not_found"
	outcomeRejected = "rejected"
)

type metrics struct {
	registerer prometheus.Registerer
	collectors []prometheus.Collector

	dispatched *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   prometheus.Gauge
}

// newMetrics builds the client collectors and registers them with reg when
// it is not nil. Every series carries the client id, so several clients can
// share one registry.
func newMetrics(reg prometheus.Registerer, clientID string, pool *Pool) (*metrics, error) {
	labels := prometheus.Labels{"client_id": clientID}
	m := &metrics{
		registerer: reg,
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "luxadmin_dispatch_total",
			Help:        "Dispatched admin actions by outcome.",
			ConstLabels: labels,
		}, []string{"action", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "luxadmin_dispatch_duration_seconds",
			Help:        "Time from dispatch to completion.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"action"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "luxadmin_inflight_requests",
			Help:        "Dispatched actions that have not completed.",
			ConstLabels: labels,
		}),
	}
	queueDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "luxadmin_pool_queue_depth",
		Help:        "Tasks waiting for a worker.",
		ConstLabels: labels,
	}, func() float64 { return float64(pool.QueueDepth()) })

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.dispatched, m.duration, m.inflight, queueDepth} {
		if err := reg.Register(c); err != nil {
			m.unregister()
			return nil, err
		}
		m.collectors = append(m.collectors, c)
	}
	return m, nil
}

func (m *metrics) begin() { m.inflight.Inc() }

func (m *metrics) finish(action, outcome string, elapsed time.Duration) {
	m.inflight.Dec()
	m.dispatched.WithLabelValues(action, outcome).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *metrics) reject(action, outcome string) {
	m.dispatched.WithLabelValues(action, outcome).Inc()
}

func (m *metrics) unregister() error {
	if m.registerer == nil {
		return nil
	}
	var errs []error
	for _, c := range m.collectors {
		if !m.registerer.Unregister(c) {
			errs = append(errs, errors.New("collector was not registered"))
		}
	}
	m.collectors = nil
	return errors.Join(errs...)
}
