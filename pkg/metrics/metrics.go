package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warehouse"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder collects operation and stock metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	stock      *prometheus.GaugeVec
	sweeps     prometheus.Counter
}

// New builds a recorder with the Go runtime and process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Stock operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Stock operation latency including the status sweep.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		stock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stock",
			Help:      "Stock summary as of the last dashboard read.",
		}, []string{"measure"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Batch status changes written by derivation.",
		}),
	}

	reg.MustRegister(
		r.operations,
		r.duration,
		r.stock,
		r.sweeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one operation
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// StatusUpdates counts batches whose stored status was changed by derivation
func (r *Recorder) StatusUpdates(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sweeps.Add(float64(n))
}

// SetStock publishes the dashboard aggregate
func (r *Recorder) SetStock(total, expiringSoon, expired int64) {
	if r == nil {
		return
	}
	r.stock.WithLabelValues("total_quantity").Set(float64(total))
	r.stock.WithLabelValues("expiring_soon_batches").Set(float64(expiringSoon))
	r.stock.WithLabelValues("expired_batches").Set(float64(expired))
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
