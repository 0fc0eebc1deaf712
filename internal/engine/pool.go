// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/pkg/types"
)

const (
	defaultPollInterval  = time.Second
	maxConsecutiveErrors = 5
	maxErrorBackoff      = 30 * time.Second
)

// WorkerPool runs jobs from a Queue on a fixed number of goroutines.
type WorkerPool struct {
	queue        *Queue
	registry     *Registry
	workers      int
	pollInterval time.Duration
	logger       *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a pool that executes jobs from queue with the
// handlers in registry. Register handlers before calling Start.
func NewWorkerPool(queue *Queue, registry *Registry, cfg types.EngineConfig, logger *zap.SugaredLogger) *WorkerPool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &WorkerPool{
		queue:        queue,
		registry:     registry,
		workers:      workers,
		pollInterval: poll,
		logger:       logger.Named("engine"),
	}
}

// Start recovers jobs orphaned by a previous process and launches the
// workers. Workers exit when ctx is cancelled or Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.cancel != nil {
		return
	}

	n, err := wp.queue.RecoverOrphans(ctx)
	if err != nil {
		wp.logger.Warnw("failed to recover orphaned jobs", logging.FieldError, err)
	} else if n > 0 {
		wp.logger.Infow("recovered orphaned jobs", "count", n)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	wp.cancel = cancel
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(workerCtx, i)
	}
	wp.logger.Infow("worker pool started", "workers", wp.workers, "handlers", wp.registry.Names())
}

// Stop cancels the workers and waits for them to exit. Jobs interrupted
// mid-execution are released back to the queue.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	cancel := wp.cancel
	wp.cancel = nil
	wp.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	wp.wg.Wait()
	wp.logger.Infow("worker pool stopped")
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	errorCount := 0
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Drain runnable jobs before waiting for the next tick.
		for {
			processed, err := wp.ProcessNext(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, sql.ErrConnDone) {
					return
				}
				errorCount++
				wp.logger.Errorw("worker error processing job",
					"worker_id", id,
					logging.FieldError, err,
					"consecutive_errors", errorCount)
				if errorCount >= maxConsecutiveErrors {
					wp.logger.Warnw("worker backing off after consecutive errors",
						"worker_id", id, "backoff", backoff)
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					backoff = min(backoff*2, maxErrorBackoff)
				}
				break
			}
			if errorCount > 0 {
				wp.logger.Infow("worker recovered from errors",
					"worker_id", id, "previous_error_count", errorCount)
				errorCount = 0
				backoff = time.Second
			}
			if !processed {
				break
			}
		}
	}
}

// ProcessNext claims one runnable job and executes it. It reports whether
// a job was claimed. The returned error concerns the queue itself; handler
// failures are recorded on the job.
func (wp *WorkerPool) ProcessNext(ctx context.Context) (bool, error) {
	job, err := wp.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := wp.logger.With(logging.FieldTaskID, job.ID, logging.FieldHandler, job.Handler, logging.FieldAttempt, job.Attempts)

	// Outcomes are recorded even when shutdown lands after the handler
	// returned.
	recordCtx := context.WithoutCancel(ctx)

	h := wp.registry.Get(job.Handler)
	if h == nil {
		err := Permanent(errors.Wrapf(ErrNoHandler, "handler %q", job.Handler))
		log.Errorw("job has no handler", logging.FieldError, err)
		_, ferr := wp.queue.Fail(recordCtx, job, err)
		return true, wp.claimLost(log, ferr)
	}

	log.Debugw("executing job")
	result, execErr := wp.execute(ctx, h, job)

	if execErr != nil && ctx.Err() != nil {
		// Shutdown interrupted the job; leave it for the next process.
		if err := wp.claimLost(log, wp.queue.Release(recordCtx, job)); err != nil {
			log.Errorw("failed to release interrupted job", logging.FieldError, err)
		}
		log.Infow("job interrupted by shutdown, released")
		return true, nil
	}

	if execErr != nil {
		state, err := wp.queue.Fail(recordCtx, job, execErr)
		if err != nil {
			return true, wp.claimLost(log, err)
		}
		if state == StateFailed {
			log.Warnw("job failed", logging.FieldError, execErr, "permanent", IsPermanent(execErr))
		} else {
			log.Infow("job will be retried", logging.FieldError, execErr)
		}
		return true, nil
	}

	if err := wp.queue.Complete(recordCtx, job, result); err != nil {
		return true, wp.claimLost(log, err)
	}
	log.Infow("job succeeded")
	return true, nil
}

// claimLost logs and swallows ErrClaimLost: another worker owns the job
// and will record its outcome. Other errors are returned unchanged.
func (wp *WorkerPool) claimLost(log *zap.SugaredLogger, err error) error {
	if errors.Is(err, ErrClaimLost) {
		log.Warnw("job was reclaimed by another worker, outcome discarded", logging.FieldError, err)
		return nil
	}
	return err
}

// execute runs the handler and converts a panic into a permanent failure.
func (wp *WorkerPool) execute(ctx context.Context, h Handler, job *Job) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(errors.Newf("handler panicked: %s", fmt.Sprint(r)))
		}
	}()
	return h.Execute(ctx, job)
}
