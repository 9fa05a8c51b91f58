// Package pipeline wires the digest engine stages together: enrichment,
// deduplication, and section grouping over one entity batch.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/audit"
	"github.com/brieflyhq/briefly/pkg/digest/dedup"
	"github.com/brieflyhq/briefly/pkg/digest/enrich"
	"github.com/brieflyhq/briefly/pkg/digest/observability"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Batch is one unit of work: a set of entities extracted from the same
// digest window.
type Batch struct {
	ID       string           `json:"id"`
	Entities []*digest.Entity `json:"entities"`

	// Now overrides the resolution reference time; zero means wall clock.
	Now time.Time `json:"now,omitempty"`
}

// NewBatch wraps entities in a batch with a fresh id.
func NewBatch(entities []*digest.Entity) *Batch {
	return &Batch{ID: uuid.New().String(), Entities: entities}
}

// Result is the processed batch handed to the renderer.
type Result struct {
	BatchID  string                                    `json:"batch_id"`
	Entities []*digest.Entity                          `json:"entities"`
	Sections map[digest.DigestSection][]*digest.Entity `json:"sections"`
	Duration time.Duration                             `json:"duration"`
}

// Pipeline runs a batch through enrichment, deduplication and grouping.
type Pipeline struct {
	enricher *enrich.Enricher
	deduper  *dedup.Deduplicator
	auditor  audit.Repository
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	logger   logging.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithAudit enables audit trail persistence. Audit failures are logged
// and never fail the batch.
func WithAudit(repo audit.Repository) Option {
	return func(p *Pipeline) {
		p.auditor = repo
	}
}

// New creates a pipeline from its stages.
func New(enricher *enrich.Enricher, deduper *dedup.Deduplicator, opts ...Option) *Pipeline {
	p := &Pipeline{
		enricher: enricher,
		deduper:  deduper,
		tracer:   observability.NewTracer(),
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logging.F("component", "pipeline"))
	return p
}

// Process runs the batch through all stages. It never fails on entity
// content; the error return covers only context cancellation between
// stages.
func (p *Pipeline) Process(ctx context.Context, batch *Batch) (*Result, error) {
	started := time.Now()

	now := batch.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ctx, span := p.tracer.StartBatchSpan(ctx, batch.ID, len(batch.Entities))
	defer observability.EndSpan(span, nil)

	if p.metrics != nil {
		p.metrics.BatchEntities.Observe(float64(len(batch.Entities)))
	}

	enriched := p.runStage(ctx, "enrich", func() []*digest.Entity {
		return p.enricher.Enrich(batch.Entities, now)
	})
	if err := ctx.Err(); err != nil {
		p.countBatch("cancelled")
		return nil, err
	}

	deduped := p.runStage(ctx, "dedup", func() []*digest.Entity {
		return p.deduper.Deduplicate(enriched)
	})
	if err := ctx.Err(); err != nil {
		p.countBatch("cancelled")
		return nil, err
	}

	var sections map[digest.DigestSection][]*digest.Entity
	p.runStage(ctx, "group", func() []*digest.Entity {
		sections = digest.GroupBySection(deduped)
		return deduped
	})

	if p.auditor != nil {
		records := make([]*audit.Record, 0, len(deduped))
		for _, e := range deduped {
			records = append(records, audit.NewRecord(batch.ID, e))
		}
		if err := p.auditor.InsertBatch(ctx, records); err != nil {
			p.logger.Warn("Failed to persist audit records",
				logging.Err(err),
				logging.F("batch_id", batch.ID))
		}
	}

	p.countBatch("ok")
	duration := time.Since(started)
	p.logger.Info("Batch processed",
		logging.F("batch_id", batch.ID),
		logging.F("input", len(batch.Entities)),
		logging.F("survivors", len(deduped)),
		logging.F("duration", duration))

	return &Result{
		BatchID:  batch.ID,
		Entities: deduped,
		Sections: sections,
		Duration: duration,
	}, nil
}

// runStage wraps a stage in a span and a latency observation.
func (p *Pipeline) runStage(ctx context.Context, stage string, fn func() []*digest.Entity) []*digest.Entity {
	_, span := p.tracer.StartStageSpan(ctx, stage)
	started := time.Now()
	out := fn()
	if p.metrics != nil {
		p.metrics.BatchSeconds.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	}
	observability.EndSpan(span, nil)
	return out
}

func (p *Pipeline) countBatch(status string) {
	if p.metrics != nil {
		p.metrics.BatchesTotal.WithLabelValues(status).Inc()
	}
}
