package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestMetrics instruments the ingestion worker.
type IngestMetrics struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec
	ingestInFlight   prometheus.Gauge
	unitsTotal       *prometheus.CounterVec
	syncFailures     prometheus.Counter
	indexVectorTotal *prometheus.GaugeVec
}

func NewIngestMetrics(service string) *IngestMetrics {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "learnwave",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Ingested documents by terminal status.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "learnwave",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "End-to-end ingestion duration by terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	ingestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "learnwave",
			Subsystem: "ingest",
			Name:      "in_flight",
			Help:      "Number of in-flight document ingestions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	unitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "learnwave",
			Subsystem: "ingest",
			Name:      "units_total",
			Help:      "Analyzed units by analysis path and outcome.",
		},
		[]string{"service", "path", "outcome"},
	)
	syncFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "learnwave",
			Subsystem: "ingest",
			Name:      "remote_sync_failures_total",
			Help:      "Remote sync operations that failed (non-fatal).",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexVectorTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "learnwave",
			Subsystem: "index",
			Name:      "vectors",
			Help:      "Vectors currently held by a partition's index.",
		},
		[]string{"service", "partition"},
	)

	registry.MustRegister(documentsTotal, ingestDuration, ingestInFlight, unitsTotal, syncFailures, indexVectorTotal)

	return &IngestMetrics{
		registry:         registry,
		documentsTotal:   documentsTotal,
		ingestDuration:   ingestDuration,
		ingestInFlight:   ingestInFlight,
		unitsTotal:       unitsTotal,
		syncFailures:     syncFailures,
		indexVectorTotal: indexVectorTotal,
	}
}

func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestMetrics) StartDocument() {
	m.ingestInFlight.Inc()
}

func (m *IngestMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.ingestInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.documentsTotal.WithLabelValues(service, status).Inc()
	m.ingestDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *IngestMetrics) ObserveUnit(service, path string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.unitsTotal.WithLabelValues(service, path, outcome).Inc()
}

func (m *IngestMetrics) ObserveSyncFailure() {
	m.syncFailures.Inc()
}

func (m *IngestMetrics) SetIndexSize(service, partition string, size int) {
	m.indexVectorTotal.WithLabelValues(service, partition).Set(float64(size))
}
