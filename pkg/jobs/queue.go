package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Job is a unit of background work, such as a post-upload scan hook.
type Job func(ctx context.Context) error

// Queue is a bounded in-process worker pool. Work submitted after Stop
// is rejected rather than silently dropped.
type Queue struct {
	name    string
	jobs    chan Job
	workers int
	logger  *zap.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewQueue creates a queue with the given buffer size and worker count.
func NewQueue(name string, buffer, workers int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 2
	}

	return &Queue{
		name:    name,
		jobs:    make(chan Job, buffer),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())

	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for job := range q.jobs {
		if err := job(ctx); err != nil {
			q.logger.Warn("background job failed",
				zap.String("queue", q.name),
				zap.Int("worker", id),
				zap.Error(err),
			)
		}
	}
}

// Enqueue submits a job. It returns false when the queue is stopped or full.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}

	select {
	case q.jobs <- job:
		return true
	default:
		q.logger.Warn("job queue full, dropping job", zap.String("queue", q.name))
		return false
	}
}

// Stop drains outstanding jobs and waits for workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	cancel := q.cancel
	q.mu.Unlock()

	q.wg.Wait()
	if cancel != nil {
		cancel()
	}
}
