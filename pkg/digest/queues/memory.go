package queues

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue implements Queue over a buffered channel, for tests and
// for running the worker without Redis.
type MemoryQueue struct {
	name   string
	policy RetryPolicy
	ch     chan *BatchMessage
	dlq    chan *BatchMessage
}

// NewMemoryQueue creates an in-memory queue with the given capacity.
func NewMemoryQueue(name string, capacity int, policy RetryPolicy) *MemoryQueue {
	return &MemoryQueue{
		name:   name,
		policy: policy,
		ch:     make(chan *BatchMessage, capacity),
		dlq:    make(chan *BatchMessage, capacity),
	}
}

// Name returns the queue name.
func (q *MemoryQueue) Name() string {
	return q.name
}

// Enqueue adds a batch to the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg *BatchMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks up to timeout for the next batch.
func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*BatchMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Nack returns a failed batch to the queue with its retry backoff
// stamped, or moves it to the DLQ once retries are exhausted.
func (q *MemoryQueue) Nack(ctx context.Context, msg *BatchMessage, cause error) error {
	msg.RetryCount++
	if q.policy.ShouldRetry(msg.RetryCount) {
		msg.NotBefore = time.Now().UTC().Add(q.policy.CalculateBackoff(msg.RetryCount - 1))
		return q.Enqueue(ctx, msg)
	}
	select {
	case q.dlq <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth returns the number of batches waiting.
func (q *MemoryQueue) Depth(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

// DLQDepth returns the number of batches in the dead letter queue.
func (q *MemoryQueue) DLQDepth() int {
	return len(q.dlq)
}

// Verify interface compliance
var _ Queue = (*MemoryQueue)(nil)
