package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for digest operations.
	TracerName = "digest"
)

// Span attribute keys
const (
	AttrBatchID     = "batch_id"
	AttrBatchSize   = "batch_size"
	AttrStage       = "stage"
	AttrEntityType  = "entity_type"
	AttrDecayReason = "decay_reason"
	AttrSurvivors   = "survivors"
)

// Span names
const (
	SpanProcessBatch = "digest.process_batch"
	SpanStageEnrich  = "digest.stage.enrich"
	SpanStageDedup   = "digest.stage.dedup"
	SpanStageGroup   = "digest.stage.group"
)

// Tracer provides distributed tracing for digest batch processing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new digest tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartBatchSpan starts a root span for processing a batch.
func (t *Tracer) StartBatchSpan(ctx context.Context, batchID string, size int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProcessBatch,
		trace.WithAttributes(
			attribute.String(AttrBatchID, batchID),
			attribute.Int(AttrBatchSize, size),
		),
	)
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("digest.stage.%s", stage)
	return t.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String(AttrStage, stage),
		),
	)
}

// EndSpan ends a span, recording the error if one occurred.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
