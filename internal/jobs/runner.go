// Package jobs runs background work so HTTP handlers never block on OCR or
// LLM calls. Job records are persisted in the store and survive restarts.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lazyreader/textbookd/internal/store"
)

// Job is the interface that all job types must implement.
type Job interface {
	// Type returns the job type identifier.
	Type() string

	// Execute runs the job. It should respect context cancellation.
	//
	// Execute must be idempotent: jobs may be resubmitted after server
	// restarts or failures, so implementations check existing state
	// before starting work and handle partial completion gracefully.
	Execute(ctx context.Context) error
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Type returns the job type identifier.
func (f FuncJob) Type() string { return f.Name }

// Execute runs the wrapped function.
func (f FuncJob) Execute(ctx context.Context) error { return f.Fn(ctx) }

// Config sizes the runner.
type Config struct {
	// Workers is the number of concurrent executors (default 4).
	Workers int
	// QueueSize is the pending-job buffer (default 64).
	QueueSize int
}

type queuedJob struct {
	id  string
	job Job
}

// Runner executes submitted jobs on a fixed worker pool and records their
// lifecycle in the store.
type Runner struct {
	store  *store.Store
	logger *slog.Logger
	queue  chan queuedJob

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	workers int
}

// NewRunner creates a runner. Start must be called before Submit.
func NewRunner(s *store.Store, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Runner{
		store:   s,
		logger:  logger,
		queue:   make(chan queuedJob, cfg.QueueSize),
		workers: cfg.Workers,
	}
}

// Start launches the worker pool. It returns immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
}

// Stop cancels running jobs and waits for the workers to drain.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

// Submit persists a pending job record and queues the job for execution.
// bookID may be nil for jobs not tied to a book. Returns the job ID.
func (r *Runner) Submit(ctx context.Context, job Job, bookID *int64) (string, error) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return "", fmt.Errorf("job runner not started")
	}

	id := uuid.New().String()
	if err := r.store.CreateJob(ctx, store.JobRecord{
		ID:     id,
		Type:   job.Type(),
		BookID: bookID,
	}); err != nil {
		return "", fmt.Errorf("recording job: %w", err)
	}

	select {
	case r.queue <- queuedJob{id: id, job: job}:
		return id, nil
	default:
		err := fmt.Errorf("job queue full")
		if markErr := r.store.MarkJobFailed(ctx, id, err); markErr != nil {
			r.logger.Error("failed to mark overflowed job", "job_id", id, "error", markErr)
		}
		return "", err
	}
}

func (r *Runner) worker(ctx context.Context, n int) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-r.queue:
			r.run(ctx, q)
		}
	}
}

func (r *Runner) run(ctx context.Context, q queuedJob) {
	logger := r.logger.With("job_id", q.id, "job_type", q.job.Type())

	if err := r.store.MarkJobRunning(ctx, q.id); err != nil {
		logger.Error("failed to mark job running", "error", err)
		return
	}
	logger.Info("job started")

	if err := q.job.Execute(ctx); err != nil {
		logger.Error("job failed", "error", err)
		if markErr := r.store.MarkJobFailed(context.WithoutCancel(ctx), q.id, err); markErr != nil {
			logger.Error("failed to record job failure", "error", markErr)
		}
		return
	}

	if err := r.store.MarkJobCompleted(context.WithoutCancel(ctx), q.id); err != nil {
		logger.Error("failed to record job completion", "error", err)
		return
	}
	logger.Info("job completed")
}
