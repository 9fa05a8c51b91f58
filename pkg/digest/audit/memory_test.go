package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brieflyhq/briefly/pkg/digest"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	batchA := []*Record{
		NewRecord("batch-a", &digest.Entity{SourceEmailID: "e1", EntityType: digest.EntityTypeEvent}),
		NewRecord("batch-a", &digest.Entity{SourceEmailID: "e2", EntityType: digest.EntityTypePromo}),
	}
	batchB := []*Record{
		NewRecord("batch-b", &digest.Entity{SourceEmailID: "e3", EntityType: digest.EntityTypeFlight}),
	}

	require.NoError(t, repo.InsertBatch(ctx, batchA))
	require.NoError(t, repo.InsertBatch(ctx, batchB))
	assert.Equal(t, 3, repo.Len())

	got, err := repo.ListByBatch(ctx, "batch-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].SourceEmailID)
	assert.Equal(t, "e2", got[1].SourceEmailID)

	empty, err := repo.ListByBatch(ctx, "batch-missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewRecordCopiesEntityFields(t *testing.T) {
	e := &digest.Entity{
		SourceEmailID:      "e1",
		EntityType:         digest.EntityTypeDeadline,
		StoredImportance:   digest.ImportanceTimeSensitive,
		ResolvedImportance: digest.ImportanceRoutine,
		DecayReason:        "temporal_expired",
		WasModified:        true,
		HideInDigest:       true,
		DigestSection:      digest.SectionWorthKnowing,
	}

	rec := NewRecord("batch-1", e)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", rec.ID.String())
	assert.Equal(t, "batch-1", rec.BatchID)
	assert.Equal(t, digest.EntityTypeDeadline, rec.EntityType)
	assert.Equal(t, digest.ImportanceTimeSensitive, rec.StoredImportance)
	assert.Equal(t, digest.ImportanceRoutine, rec.ResolvedImportance)
	assert.Equal(t, "temporal_expired", rec.DecayReason)
	assert.True(t, rec.WasModified)
	assert.True(t, rec.Hidden)
	assert.Equal(t, "WORTH_KNOWING", rec.Section)
	assert.False(t, rec.CreatedAt.IsZero())
}
