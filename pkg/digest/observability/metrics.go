// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the digest engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the digest engine.
type Metrics struct {
	// Batch metrics
	BatchesTotal  *prometheus.CounterVec
	BatchSeconds  *prometheus.HistogramVec
	BatchEntities prometheus.Histogram

	// Resolution metrics
	EntitiesResolvedTotal  *prometheus.CounterVec
	ImportanceChangesTotal *prometheus.CounterVec
	HiddenTotal            prometheus.Counter
	ParseErrorsTotal       prometheus.Counter

	// Guardrail metrics
	GuardrailHitsTotal *prometheus.CounterVec

	// Deduplication metrics
	DedupCollapsedTotal *prometheus.CounterVec
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of digest engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_batches_total",
				Help: "Total entity batches processed",
			},
			[]string{"status"},
		),
		BatchSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "digest_batch_seconds",
				Help:    "Batch processing latency per stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"stage"},
		),
		BatchEntities: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "digest_batch_entities",
				Help:    "Entities per batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		EntitiesResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_entities_resolved_total",
				Help: "Total entities resolved, by type and decay reason",
			},
			[]string{"entity_type", "decay_reason"},
		),
		ImportanceChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_importance_changes_total",
				Help: "Importance changes applied by temporal decay",
			},
			[]string{"direction"},
		),
		HiddenTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "digest_entities_hidden_total",
				Help: "Entities hidden from the digest",
			},
		),
		ParseErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "digest_temporal_parse_errors_total",
				Help: "Malformed temporal timestamps encountered",
			},
		),
		GuardrailHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_guardrail_hits_total",
				Help: "Guardrail rule matches, by category and rule",
			},
			[]string{"category", "rule"},
		),
		DedupCollapsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_dedup_collapsed_total",
				Help: "Entities removed by deduplication, by pass",
			},
			[]string{"pass"},
		),
	}
}

// Importance change directions.
const (
	DirectionEscalated  = "escalated"
	DirectionDowngraded = "downgraded"
	DirectionUnchanged  = "unchanged"
)

// Dedup passes.
const (
	PassThread    = "thread"
	PassSignature = "signature"
)
