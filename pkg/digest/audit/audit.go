// Package audit persists resolution audit records. Every enriched entity
// whose importance changed, or that was hidden, leaves a record of what
// the upstream model said and what the engine resolved, so digest
// placement decisions can be explained after the fact.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brieflyhq/briefly/pkg/digest"
)

// Record is one resolution audit entry.
type Record struct {
	ID                 uuid.UUID         `json:"id"`
	BatchID            string            `json:"batch_id"`
	SourceEmailID      string            `json:"source_email_id"`
	EntityType         digest.EntityType `json:"entity_type"`
	StoredImportance   digest.Importance `json:"stored_importance"`
	ResolvedImportance digest.Importance `json:"resolved_importance"`
	DecayReason        string            `json:"decay_reason"`
	WasModified        bool              `json:"was_modified"`
	Hidden             bool              `json:"hidden"`
	Section            string            `json:"section"`
	CreatedAt          time.Time         `json:"created_at"`
}

// NewRecord builds an audit record for an enriched entity.
func NewRecord(batchID string, e *digest.Entity) *Record {
	return &Record{
		ID:                 uuid.New(),
		BatchID:            batchID,
		SourceEmailID:      e.SourceEmailID,
		EntityType:         e.EntityType,
		StoredImportance:   e.StoredImportance,
		ResolvedImportance: e.ResolvedImportance,
		DecayReason:        e.DecayReason,
		WasModified:        e.WasModified,
		Hidden:             e.HideInDigest,
		Section:            string(e.DigestSection),
		CreatedAt:          time.Now().UTC(),
	}
}

// Repository provides storage for audit records.
type Repository interface {
	// InsertBatch stores the records for one batch.
	InsertBatch(ctx context.Context, records []*Record) error

	// ListByBatch retrieves all records for a batch, oldest first.
	ListByBatch(ctx context.Context, batchID string) ([]*Record, error)
}
