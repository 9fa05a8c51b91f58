// Package workers provides the worker pool draining the batch queue
// through the digest pipeline.
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/brieflyhq/briefly/pkg/digest/pipeline"
	"github.com/brieflyhq/briefly/pkg/digest/queues"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Status represents a worker's current status.
type Status string

const (
	StatusStarting Status = "starting"
	StatusHealthy  Status = "healthy"
	StatusDraining Status = "draining"
	StatusStopped  Status = "stopped"
)

// Config configures the pool.
type Config struct {
	Count           int           `yaml:"count"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		Count:           4,
		PollInterval:    1 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Worker processes batches from the queue through the pipeline.
type Worker struct {
	ID     string
	status Status

	queue  queues.Queue
	pipe   *pipeline.Pipeline
	config Config
	logger logging.Logger

	processed atomic.Int64
	failed    atomic.Int64

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewWorker creates a worker.
func NewWorker(config Config, queue queues.Queue, pipe *pipeline.Pipeline, logger logging.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	return &Worker{
		ID:         id,
		status:     StatusStarting,
		queue:      queue,
		pipe:       pipe,
		config:     config,
		logger:     logger.With(logging.F("worker_id", id)),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start begins processing batches.
func (w *Worker) Start() {
	w.status = StatusHealthy
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processLoop()
	}()
}

// Stop gracefully stops the worker, waiting up to ShutdownTimeout for
// the in-flight batch.
func (w *Worker) Stop() {
	w.status = StatusDraining
	w.cancelFunc()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timed out")
	}
	w.status = StatusStopped
}

// Status returns the worker's current status.
func (w *Worker) Status() Status {
	return w.status
}

// Processed returns the number of batches processed.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// Failed returns the number of batches that failed.
func (w *Worker) Failed() int64 {
	return w.failed.Load()
}

func (w *Worker) processLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		msg, err := w.queue.Dequeue(w.ctx, w.config.PollInterval)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to dequeue batch", logging.Err(err))
			time.Sleep(w.config.PollInterval)
			continue
		}
		if msg == nil {
			continue
		}

		w.handle(msg)
	}
}

func (w *Worker) handle(msg *queues.BatchMessage) {
	// A retried message carries its backoff as a not-before timestamp;
	// wait it out, or hand the message back on shutdown.
	if delay := time.Until(msg.NotBefore); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-w.ctx.Done():
			if err := w.queue.Enqueue(context.Background(), msg); err != nil {
				w.logger.Error("Failed to requeue delayed batch", logging.Err(err))
			}
			return
		}
	}

	batch := &pipeline.Batch{ID: msg.BatchID, Entities: msg.Entities}
	if batch.ID == "" {
		batch.ID = msg.ID
	}

	if _, err := w.pipe.Process(w.ctx, batch); err != nil {
		w.failed.Add(1)
		w.logger.Error("Batch processing failed",
			logging.Err(err),
			logging.F("batch_id", batch.ID),
			logging.F("retry_count", msg.RetryCount))
		if nackErr := w.queue.Nack(context.Background(), msg, err); nackErr != nil {
			w.logger.Error("Failed to nack batch", logging.Err(nackErr))
		}
		return
	}
	w.processed.Add(1)
}

// Pool manages a set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logging.Logger
}

// NewPool creates a pool of config.Count workers.
func NewPool(config Config, queue queues.Queue, pipe *pipeline.Pipeline, logger logging.Logger) *Pool {
	if config.Count <= 0 {
		config.Count = DefaultConfig().Count
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	workers := make([]*Worker, config.Count)
	for i := range workers {
		workers[i] = NewWorker(config, queue, pipe, logger)
	}
	return &Pool{workers: workers, logger: logger.With(logging.F("component", "worker_pool"))}
}

// Start starts all workers.
func (p *Pool) Start() {
	for _, w := range p.workers {
		w.Start()
	}
	p.logger.Info("Worker pool started", logging.F("workers", len(p.workers)))
}

// Stop stops all workers, draining in parallel.
func (p *Pool) Stop() {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
	p.logger.Info("Worker pool stopped",
		logging.F("processed", p.Processed()),
		logging.F("failed", p.Failed()))
}

// Processed returns the total batches processed across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the total failed batches across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}
