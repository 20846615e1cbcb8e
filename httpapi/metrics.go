// SPDX-License-Identifier: GPL-3.0-or-later

package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rbmk-project/pkttrace/netsim"
)

// Metrics contains the trace metrics.
type Metrics struct {
	// Traces counts the completed traces by outcome.
	Traces *prometheus.CounterVec

	// Hops observes the number of hops of each trace.
	Hops prometheus.Histogram
}

// NewMetrics creates the trace metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		Traces: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkttrace_traces_total",
				Help: "Total number of traces by outcome.",
			},
			[]string{"outcome"},
		),
		Hops: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pkttrace_trace_hops",
				Help:    "Number of routers visited by each trace.",
				Buckets: prometheus.LinearBuckets(0, 1, 16),
			},
		),
	}
	// Export every outcome even before it occurs.
	for _, outcome := range netsim.Outcomes {
		m.Traces.WithLabelValues(outcome.String())
	}
	return m
}

// observe records the result of a trace.
func (m *Metrics) observe(res *netsim.Result) {
	m.Traces.WithLabelValues(res.Outcome.String()).Inc()
	m.Hops.Observe(float64(res.Hops))
}
