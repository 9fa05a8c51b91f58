// Package queues provides the batch queue feeding the digest workers.
// The production implementation is Redis-backed; a channel-backed
// implementation exists for tests.
package queues

import (
	"context"
	"time"

	"github.com/brieflyhq/briefly/pkg/digest"
)

// BatchMessage is one queued unit of work. NotBefore is set on retry
// re-enqueue; workers hold a dequeued message until it passes.
type BatchMessage struct {
	ID         string           `json:"id"`
	BatchID    string           `json:"batch_id"`
	Entities   []*digest.Entity `json:"entities"`
	RetryCount int              `json:"retry_count"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
	NotBefore  time.Time        `json:"not_before"`
}

// Queue is the interface workers consume batches from.
type Queue interface {
	// Name returns the queue name.
	Name() string

	// Enqueue adds a batch to the queue.
	Enqueue(ctx context.Context, msg *BatchMessage) error

	// Dequeue blocks up to timeout for the next batch. A nil message
	// with nil error means the queue was empty for the whole window.
	Dequeue(ctx context.Context, timeout time.Duration) (*BatchMessage, error)

	// Nack returns a failed batch to the queue or, once its retries are
	// exhausted, moves it to the dead letter queue.
	Nack(ctx context.Context, msg *BatchMessage, cause error) error

	// Depth returns the number of batches waiting.
	Depth(ctx context.Context) (int64, error)
}
