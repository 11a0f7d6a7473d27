// internal/metrics/metrics.go
// Package metrics exposes Prometheus collectors for completions, retrieval,
// and ingestion on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfrag"

// Metrics owns the registry and every collector the application records to.
type Metrics struct {
	Registry *prometheus.Registry

	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tokens             *prometheus.CounterVec
	queries            *prometheus.CounterVec
	retrievalDuration  prometheus.Histogram
	chunksIndexed      prometheus.Counter
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Chat completion calls by model and status.",
		}, []string{"model", "status"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Chat completion latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"model"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Tokens reported by the completion backend.",
		}, []string{"model", "kind"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries by outcome.",
		}, []string{"outcome"}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Embedding plus vector search latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Records upserted into the vector index.",
		}),
	}
	m.Registry.MustRegister(
		m.completions,
		m.completionDuration,
		m.tokens,
		m.queries,
		m.retrievalDuration,
		m.chunksIndexed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveQuery records one query's outcome (answer, degraded, failed).
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// ObserveRetrieval records how long embedding and search took.
func (m *Metrics) ObserveRetrieval(d time.Duration) {
	if m == nil {
		return
	}
	m.retrievalDuration.Observe(d.Seconds())
}

// AddIndexed counts upserted records.
func (m *Metrics) AddIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksIndexed.Add(float64(n))
}
