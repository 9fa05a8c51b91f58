package audit

import (
	"context"
	"sync"
)

// MemoryRepository implements Repository in memory, for tests and for
// running the engine without Postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// InsertBatch stores the records for one batch.
func (r *MemoryRepository) InsertBatch(ctx context.Context, records []*Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

// ListByBatch retrieves all records for a batch in insertion order.
func (r *MemoryRepository) ListByBatch(ctx context.Context, batchID string) ([]*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Record
	for _, rec := range r.records {
		if rec.BatchID == batchID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len returns the total number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Verify interface compliance
var _ Repository = (*MemoryRepository)(nil)
