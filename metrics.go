// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "life"

// Metrics are the driver's Prometheus instruments.
type Metrics struct {
	// Ticks counts submitted ticks.
	Ticks prometheus.Counter
	// Failures counts ticks that returned an error, labelled by phase.
	Failures *prometheus.CounterVec
	// Step mirrors the driver's step counter.
	Step prometheus.Gauge
	// TickDuration observes the wall time of one tick, recording and
	// submission included.
	TickDuration prometheus.Histogram
}

// NewMetrics creates the driver instruments and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Number of simulation ticks submitted",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tick_failures_total",
			Help:      "Number of simulation ticks that failed",
		}, []string{"phase"}),
		Step: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "step",
			Help:      "Current value of the step counter",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent recording and submitting one tick",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.Failures, m.Step, m.TickDuration)
	}
	return m
}

func (m *Metrics) observeTick(step uint64, d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.Step.Set(float64(step))
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) observeFailure(phase string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(phase).Inc()
}
