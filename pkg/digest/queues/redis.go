package queues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefixes
const (
	keyPrefixQueue = "briefly:queue:" // Main queue (list)
	keyPrefixDLQ   = "briefly:dlq:"   // Dead letter queue
)

// RedisQueue implements Queue using Redis lists.
type RedisQueue struct {
	client *redis.Client
	name   string
	policy RetryPolicy
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(client *redis.Client, name string, policy RetryPolicy) *RedisQueue {
	return &RedisQueue{
		client: client,
		name:   name,
		policy: policy,
	}
}

// Name returns the queue name.
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue adds a batch to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, msg *BatchMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal batch message: %w", err)
	}

	if err := q.client.LPush(ctx, keyPrefixQueue+q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue batch: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next batch.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*BatchMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, keyPrefixQueue+q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue batch: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) != 2 {
		return nil, nil
	}

	var msg BatchMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch message: %w", err)
	}
	return &msg, nil
}

// Nack returns a failed batch to the queue with its retry count bumped
// and its backoff stamped, or moves it to the dead letter queue once
// retries are exhausted.
func (q *RedisQueue) Nack(ctx context.Context, msg *BatchMessage, cause error) error {
	msg.RetryCount++

	if q.policy.ShouldRetry(msg.RetryCount) {
		msg.NotBefore = time.Now().UTC().Add(q.policy.CalculateBackoff(msg.RetryCount - 1))
		return q.Enqueue(ctx, msg)
	}

	envelope := struct {
		*BatchMessage
		Error    string    `json:"error"`
		FailedAt time.Time `json:"failed_at"`
	}{
		BatchMessage: msg,
		FailedAt:     time.Now().UTC(),
	}
	if cause != nil {
		envelope.Error = cause.Error()
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ envelope: %w", err)
	}
	if err := q.client.LPush(ctx, keyPrefixDLQ+q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to move batch to DLQ: %w", err)
	}
	return nil
}

// Depth returns the number of batches waiting.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, keyPrefixQueue+q.name).Result()
}

// DLQDepth returns the number of batches in the dead letter queue.
func (q *RedisQueue) DLQDepth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, keyPrefixDLQ+q.name).Result()
}

// Verify interface compliance
var _ Queue = (*RedisQueue)(nil)
