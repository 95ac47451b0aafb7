// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline. All collectors live on a dedicated registry so tests can create
// isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsFetched  *prometheus.CounterVec
	DocumentsFailed   prometheus.Counter
	ActsExtracted     *prometheus.CounterVec
	ActsReplayed      prometheus.Counter
	CompaniesCreated  prometheus.Counter
	AnomaliesRecorded *prometheus.CounterVec
	DocumentDuration  prometheus.Histogram
	RunDuration       prometheus.Histogram
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		DocumentsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "documents_fetched_total",
			Help:      "Gazette documents acquired, by fetch outcome.",
		}, []string{"status"}),
		DocumentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "documents_failed_total",
			Help:      "Documents that failed processing after retries.",
		}),
		ActsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "acts_extracted_total",
			Help:      "Mercantile acts extracted, by act type.",
		}, []string{"type"}),
		ActsReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "acts_replayed_total",
			Help:      "Acts skipped because an earlier run already stored them.",
		}),
		CompaniesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "companies_created_total",
			Help:      "New company records created by the resolver.",
		}),
		AnomaliesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "borme",
			Name:      "anomalies_total",
			Help:      "Merge anomalies recorded, by kind.",
		}, []string{"kind"}),
		DocumentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "borme",
			Name:      "document_duration_seconds",
			Help:      "Wall time to fetch, convert and extract one document.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "borme",
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete ingestion runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
	}

	reg.MustRegister(
		m.DocumentsFetched,
		m.DocumentsFailed,
		m.ActsExtracted,
		m.ActsReplayed,
		m.CompaniesCreated,
		m.AnomaliesRecorded,
		m.DocumentDuration,
		m.RunDuration,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
