// Package metrics holds the Prometheus metrics of an attest node.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attest"

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	SubscribedAccounts prometheus.Gauge
	BatchesProcessed   prometheus.Counter
	BatchesRejected    *prometheus.CounterVec
	PassesFinalized    prometheus.Counter
	HashesStored       prometheus.Counter
	ThresholdChecks    *prometheus.CounterVec
	RootsDispatched    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics in a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		SubscribedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribed_accounts",
			Help:      "Number of accounts in the snapshotter registry",
		}),
		BatchesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Batches accepted by the root accumulator",
		}),
		BatchesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_rejected_total",
			Help:      "Batches rejected by the root accumulator, by reason",
		}, []string{"reason"}),
		PassesFinalized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_finalized_total",
			Help:      "Full passes over the registry that finalized a root",
		}),
		HashesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashes_stored_total",
			Help:      "Hash records written by adapters",
		}),
		ThresholdChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_checks_total",
			Help:      "Threshold consensus checks, by result",
		}, []string{"result"}),
		RootsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roots_dispatched_total",
			Help:      "Finalized roots handed to a relay, by relay",
		}, []string{"relay"}),
		registry: reg,
	}
}

// Handler returns an http.Handler exposing the metrics in the Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetSubscribed records the size of the registry.
func (m *Metrics) SetSubscribed(n int) {
	if m == nil {
		return
	}
	m.SubscribedAccounts.Set(float64(n))
}

// BatchProcessed records an accepted batch.
func (m *Metrics) BatchProcessed(finalized bool) {
	if m == nil {
		return
	}
	m.BatchesProcessed.Inc()
	if finalized {
		m.PassesFinalized.Inc()
	}
}

// BatchRejected records a rejected batch.
func (m *Metrics) BatchRejected(reason string) {
	if m == nil {
		return
	}
	m.BatchesRejected.WithLabelValues(reason).Inc()
}

// HashStored records an adapter submission.
func (m *Metrics) HashStored() {
	if m == nil {
		return
	}
	m.HashesStored.Inc()
}

// ThresholdChecked records the outcome of a threshold check.
func (m *Metrics) ThresholdChecked(met bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if met {
		result = "met"
	}
	m.ThresholdChecks.WithLabelValues(result).Inc()
}

// RootDispatched records a root handed to relay.
func (m *Metrics) RootDispatched(relay string) {
	if m == nil {
		return
	}
	m.RootsDispatched.WithLabelValues(relay).Inc()
}
