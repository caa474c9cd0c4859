// Package telemetry holds the Prometheus instrumentation shared by the
// transaction pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "platform"

// Metrics instruments one pipeline instance. Counters are registered against
// the registerer passed to NewMetrics, so tests can use isolated registries.
type Metrics struct {
	TxSubmitted  prometheus.Counter
	TxRouted     prometheus.Counter
	TxDerived    prometheus.Counter
	RoutingSkips prometheus.Counter

	TxDuration    prometheus.Histogram
	QueryDuration prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg. A nil reg falls back to
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TxSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tx_submitted_total",
			Help:      "The total number of transactions submitted to the pipeline, derived re-entries included.",
		}),
		TxRouted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tx_routed_total",
			Help:      "The total number of transactions dispatched to a storage adapter.",
		}),
		TxDerived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tx_derived_total",
			Help:      "The total number of trigger-produced transactions replayed through the chain.",
		}),
		RoutingSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_routing_skips_total",
			Help:      "The total number of transactions skipped because their classifier resolves to no domain.",
		}),
		TxDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_tx_duration_ms",
			Help:      "The time spent processing one transaction batch, in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_query_duration_ms",
			Help:      "The time spent answering one query, in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
	}
}
