package queues

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brieflyhq/briefly/pkg/digest"
)

func TestRetryPolicyCalculateBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Second},
		{-1, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{20, 5 * time.Minute}, // capped
	}

	for _, tt := range tests {
		if got := policy.CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestRetryPolicyShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.True(t, policy.ShouldRetry(0))
	assert.True(t, policy.ShouldRetry(2))
	assert.False(t, policy.ShouldRetry(3))
	assert.False(t, policy.ShouldRetry(10))
}

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue("test", 8, DefaultRetryPolicy())
	ctx := context.Background()

	msg := &BatchMessage{
		BatchID: "batch-1",
		Entities: []*digest.Entity{
			{SourceEmailID: "e1", EntityType: digest.EntityTypePromo},
		},
	}
	require.NoError(t, q.Enqueue(ctx, msg))
	assert.NotEmpty(t, msg.ID, "Enqueue assigns an id")
	assert.False(t, msg.EnqueuedAt.IsZero(), "Enqueue stamps the time")

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "batch-1", got.BatchID)
	require.Len(t, got.Entities, 1)
}

func TestMemoryQueueDequeueTimeout(t *testing.T) {
	q := NewMemoryQueue("test", 1, DefaultRetryPolicy())

	got, err := q.Dequeue(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got, "empty queue returns nil, not an error")
}

func TestMemoryQueueDequeueCancelled(t *testing.T) {
	q := NewMemoryQueue("test", 1, DefaultRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueueNackRetriesThenDLQ(t *testing.T) {
	q := NewMemoryQueue("test", 8, DefaultRetryPolicy())
	ctx := context.Background()
	cause := errors.New("processing failed")

	msg := &BatchMessage{BatchID: "batch-1"}
	require.NoError(t, q.Enqueue(ctx, msg))

	// Three retries per the default policy, then the DLQ swallows it.
	for attempt := 1; attempt <= 3; attempt++ {
		got, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, got, "attempt %d", attempt)
		require.NoError(t, q.Nack(ctx, got, cause))
	}

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
	assert.Equal(t, 1, q.DLQDepth())
}

func TestMemoryQueueNackStampsBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
	}
	q := NewMemoryQueue("test", 8, policy)
	ctx := context.Background()
	cause := errors.New("processing failed")

	msg := &BatchMessage{BatchID: "batch-1"}
	require.NoError(t, q.Enqueue(ctx, msg))
	assert.True(t, msg.NotBefore.IsZero(), "fresh messages carry no backoff")

	// First retry waits the initial backoff, the second doubles it.
	for i, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond} {
		got, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)

		before := time.Now().UTC()
		require.NoError(t, q.Nack(ctx, got, cause))
		assert.Equal(t, i+1, got.RetryCount)
		assert.WithinDuration(t, before.Add(want), got.NotBefore, 50*time.Millisecond,
			"retry %d should back off %v", i+1, want)
	}
}
