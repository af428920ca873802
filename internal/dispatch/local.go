package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Runner executes one queued job.
type Runner func(ctx context.Context, jobID string) error

// Local runs jobs on a bounded in-process worker pool.
type Local struct {
	workers int
	queue   chan Request
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewLocal builds a pool of workers goroutines over a queue of queueSize.
func NewLocal(workers, queueSize int, logger *slog.Logger) *Local {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		workers: workers,
		queue:   make(chan Request, queueSize),
		logger:  logger,
	}
}

// Start launches the workers. They stop when ctx is done or Stop is called.
// Calling Start twice has no effect.
func (l *Local) Start(ctx context.Context, run Runner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true

	for i := 0; i < l.workers; i++ {
		l.wg.Add(1)
		go l.work(ctx, i, run)
	}
}

func (l *Local) work(ctx context.Context, id int, run Runner) {
	defer l.wg.Done()
	logger := l.logger.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-l.queue:
			if !ok {
				return
			}
			if err := run(ctx, req.JobID); err != nil {
				logger.ErrorContext(ctx, "calculation job failed", "job_id", req.JobID, "error", err)
			}
		}
	}
}

// Dispatch enqueues req without blocking.
func (l *Local) Dispatch(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStopped
	}
	select {
	case l.queue <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets the workers drain the queue and waits for them.
func (l *Local) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.queue)
	l.mu.Unlock()
	l.wg.Wait()
}
