// Package dedup collapses near-identical entities from a batch.
// Duplicates are detected first by email thread, then by a type-specific
// content signature; within a duplicate group exactly one survivor is
// kept, chosen by importance, then confidence, then recency.
package dedup

import (
	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/observability"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Deduplicator collapses duplicate entities. It is stateless apart from
// logging and metrics and never errors: entities with missing fields
// simply contribute emptier signature parts.
type Deduplicator struct {
	logger  logging.Logger
	metrics *observability.Metrics
}

// DeduplicatorOption configures the deduplicator.
type DeduplicatorOption func(*Deduplicator)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) DeduplicatorOption {
	return func(d *Deduplicator) {
		d.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) DeduplicatorOption {
	return func(d *Deduplicator) {
		d.metrics = m
	}
}

// NewDeduplicator creates a deduplicator.
func NewDeduplicator(opts ...DeduplicatorOption) *Deduplicator {
	d := &Deduplicator{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logging.F("component", "deduplicator"))
	return d
}

// Deduplicate runs the thread pass then the signature pass and returns
// the surviving entities in their original batch order. It is
// idempotent: running it on its own output changes nothing.
func (d *Deduplicator) Deduplicate(entities []*digest.Entity) []*digest.Entity {
	if len(entities) < 2 {
		return entities
	}

	afterThread := d.collapse(entities, threadKey, observability.PassThread)
	afterSignature := d.collapse(afterThread, signatureKey, observability.PassSignature)

	if removed := len(entities) - len(afterSignature); removed > 0 {
		d.logger.Debug("Deduplicated batch",
			logging.F("input", len(entities)),
			logging.F("survivors", len(afterSignature)),
			logging.F("removed", removed))
	}
	return afterSignature
}

// threadKey groups by source thread; entities without a thread id are
// left alone.
func threadKey(e *digest.Entity) string {
	return e.SourceThread
}

// signatureKey groups by the type-specific content signature.
func signatureKey(e *digest.Entity) string {
	return Signature(e)
}

// collapse keeps the best entity of every group sharing a non-empty key,
// preserving input order for the survivors.
func (d *Deduplicator) collapse(entities []*digest.Entity, key func(*digest.Entity) string, pass string) []*digest.Entity {
	best := make(map[string]*digest.Entity, len(entities))
	for _, e := range entities {
		k := key(e)
		if k == "" {
			continue
		}
		if current, ok := best[k]; !ok || better(e, current) {
			best[k] = e
		}
	}

	survivors := make([]*digest.Entity, 0, len(entities))
	removed := 0
	for _, e := range entities {
		k := key(e)
		if k == "" || best[k] == e {
			survivors = append(survivors, e)
			continue
		}
		removed++
	}

	if removed > 0 && d.metrics != nil {
		d.metrics.DedupCollapsedTotal.WithLabelValues(pass).Add(float64(removed))
	}
	return survivors
}

// better reports whether a beats b on the selection tuple
// (importance rank, confidence, timestamp), compared descending.
// Ties on rank and confidence go to the later timestamp.
func better(a, b *digest.Entity) bool {
	ar, br := rankOf(a), rankOf(b)
	if ar != br {
		return ar > br
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Timestamp.After(b.Timestamp)
}

// rankOf uses the resolved importance when enrichment has run, falling
// back to the stored importance for raw batches.
func rankOf(e *digest.Entity) int {
	if e.Enriched() {
		return e.ResolvedImportance.Rank()
	}
	return e.Importance.Rank()
}
