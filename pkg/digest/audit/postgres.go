package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brieflyhq/briefly/pkg/digest"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Schema is the DDL for the audit table, applied on worker start. It is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS resolution_audit (
	id UUID PRIMARY KEY,
	batch_id TEXT NOT NULL,
	source_email_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	stored_importance TEXT NOT NULL,
	resolved_importance TEXT NOT NULL,
	decay_reason TEXT NOT NULL,
	was_modified BOOLEAN NOT NULL,
	hidden BOOLEAN NOT NULL,
	section TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resolution_audit_batch ON resolution_audit (batch_id, created_at);
`

// InsertBatch stores the records for one batch in a single round trip.
func (r *PostgresRepository) InsertBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO resolution_audit (
			id, batch_id, source_email_id, entity_type,
			stored_importance, resolved_importance, decay_reason,
			was_modified, hidden, section, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, rec := range records {
		batch.Queue(query,
			rec.ID,
			rec.BatchID,
			rec.SourceEmailID,
			string(rec.EntityType),
			string(rec.StoredImportance),
			string(rec.ResolvedImportance),
			rec.DecayReason,
			rec.WasModified,
			rec.Hidden,
			rec.Section,
			rec.CreatedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert audit record: %w", err)
		}
	}
	return nil
}

// ListByBatch retrieves all records for a batch, oldest first.
func (r *PostgresRepository) ListByBatch(ctx context.Context, batchID string) ([]*Record, error) {
	query := `
		SELECT id, batch_id, source_email_id, entity_type,
			stored_importance, resolved_importance, decay_reason,
			was_modified, hidden, section, created_at
		FROM resolution_audit
		WHERE batch_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var entityType, stored, resolved string
		if err := rows.Scan(
			&rec.ID, &rec.BatchID, &rec.SourceEmailID, &entityType,
			&stored, &resolved, &rec.DecayReason,
			&rec.WasModified, &rec.Hidden, &rec.Section, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.EntityType = digest.EntityType(entityType)
		rec.StoredImportance = digest.Importance(stored)
		rec.ResolvedImportance = digest.Importance(resolved)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ Repository = (*PostgresRepository)(nil)
