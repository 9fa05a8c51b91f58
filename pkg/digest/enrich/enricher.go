// Package enrich orchestrates temporal decay resolution over entity
// batches. It populates each entity's audit fields, derives the digest
// section and visibility, and maintains observation counters.
package enrich

import (
	"time"

	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/decay"
	"github.com/brieflyhq/briefly/pkg/digest/observability"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Importance change directions for stats.
const (
	directionEscalated  = "escalated"
	directionDowngraded = "downgraded"
	directionUnchanged  = "unchanged"
)

// Enricher applies the decay resolver to each entity in a batch and
// records audit fields on the entity. Safe for concurrent batches: the
// resolver is pure and stats updates are mutex-guarded.
type Enricher struct {
	resolver *decay.Resolver
	stats    *Stats
	metrics  *observability.Metrics
	logger   logging.Logger
}

// EnricherOption configures the enricher.
type EnricherOption func(*Enricher)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) EnricherOption {
	return func(e *Enricher) {
		e.metrics = m
	}
}

// WithStats injects a stats collector, letting callers share one across
// enrichers or inspect it independently.
func WithStats(s *Stats) EnricherOption {
	return func(e *Enricher) {
		e.stats = s
	}
}

// NewEnricher creates an enricher around the given resolver.
func NewEnricher(resolver *decay.Resolver, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		resolver: resolver,
		stats:    NewStats(),
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.F("component", "enricher"))
	return e
}

// Stats returns the enricher's stats collector.
func (e *Enricher) Stats() *Stats {
	return e.stats
}

// Enrich resolves every entity in the batch against now, mutating the
// entities in place and returning the same slice. No entity ever fails
// enrichment: malformed temporal data degrades to no-temporal-data and
// is counted.
func (e *Enricher) Enrich(entities []*digest.Entity, now time.Time) []*digest.Entity {
	for _, ent := range entities {
		e.enrichOne(ent, now)
	}
	return entities
}

func (e *Enricher) enrichOne(ent *digest.Entity, now time.Time) {
	// Capture the pre-decay value verbatim before anything touches it.
	ent.StoredImportance = ent.Importance

	res := e.resolver.ResolveEntity(ent, now)

	ent.ResolvedImportance = res.ResolvedImportance
	ent.DecayReason = res.DecayReason
	ent.WasModified = res.WasModified
	ent.DigestSection = digest.SectionFor(res.ResolvedImportance)
	ent.HideInDigest = e.resolver.Hidden(ent, res, now)

	direction := directionUnchanged
	storedRank := ent.StoredImportance.Rank()
	resolvedRank := ent.ResolvedImportance.Rank()
	if resolvedRank > storedRank {
		direction = directionEscalated
	} else if resolvedRank < storedRank {
		direction = directionDowngraded
	}

	if res.ParseErrors > 0 {
		e.logger.Warn("Malformed temporal data on entity, treated as no temporal data",
			logging.F("entity_type", string(ent.EntityType)),
			logging.F("source_email_id", ent.SourceEmailID),
			logging.F("parse_errors", res.ParseErrors))
	}

	e.stats.record(direction, ent.HideInDigest, res.ParseErrors, res.DecayReason)

	if e.metrics != nil {
		e.metrics.EntitiesResolvedTotal.WithLabelValues(string(ent.EntityType), res.DecayReason).Inc()
		e.metrics.ImportanceChangesTotal.WithLabelValues(direction).Inc()
		if ent.HideInDigest {
			e.metrics.HiddenTotal.Inc()
		}
		if res.ParseErrors > 0 {
			e.metrics.ParseErrorsTotal.Add(float64(res.ParseErrors))
		}
	}
}
