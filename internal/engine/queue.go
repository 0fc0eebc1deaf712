// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/pdiddy/fulltext/pkg/types"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 5 * time.Second
	defaultOrphanAfter  = 30 * time.Minute
	maxRetryBackoff     = 10 * time.Minute
)

// Queue persists jobs and moves them through their states. Submit and
// Query form the engine's public contract; the remaining methods are used
// by the worker pool.
type Queue struct {
	db           *sql.DB
	maxAttempts  int
	retryBackoff time.Duration
	orphanAfter  time.Duration
	now          func() time.Time
}

// NewQueue wraps db and creates the jobs table if it does not exist. Zero
// values in cfg fall back to three attempts, a five second backoff and a
// thirty minute orphan lease.
func NewQueue(db *sql.DB, cfg types.EngineConfig) (*Queue, error) {
	q := &Queue{
		db:           db,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		orphanAfter:  cfg.OrphanAfter,
		now:          time.Now,
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = defaultMaxAttempts
	}
	if q.retryBackoff <= 0 {
		q.retryBackoff = defaultRetryBackoff
	}
	if q.orphanAfter <= 0 {
		q.orphanAfter = defaultOrphanAfter
	}
	if err := q.createSchema(); err != nil {
		return nil, errors.Wrap(err, "creating job schema")
	}
	return q, nil
}

func (q *Queue) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			handler TEXT NOT NULL,
			payload TEXT,
			idempotency_key TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			result TEXT,
			run_after INTEGER NOT NULL DEFAULT 0,
			claimed_at INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			started_at DATETIME,
			completed_at DATETIME,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, run_after)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_idempotency_key ON jobs(idempotency_key)`,
	}
	for _, stmt := range statements {
		if _, err := q.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "executing schema statement")
		}
	}
	return nil
}

// Submit records a new job and returns its handle. The job runs later, on
// whichever worker claims it first.
func (q *Queue) Submit(ctx context.Context, s Submission) (string, error) {
	if s.Handler == "" {
		return "", errors.New("submission is missing a handler name")
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "beginning submit transaction")
	}
	defer tx.Rollback()

	if s.IdempotencyKey != "" {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM jobs
			 WHERE idempotency_key = ? AND status IN (?, ?, ?)
			 ORDER BY created_at DESC LIMIT 1`,
			s.IdempotencyKey, StateQueued, StateStarted, StateRetrying,
		).Scan(&existing)
		switch {
		case err == nil:
			return existing, tx.Commit()
		case !errors.Is(err, sql.ErrNoRows):
			return "", errors.Wrap(err, "looking up active job by idempotency key")
		}
	}

	id := uuid.NewString()
	now := q.now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, handler, payload, idempotency_key, status, run_after, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, s.Handler, nullString(string(s.Payload)), nullString(s.IdempotencyKey), StateQueued, now, now,
	)
	if err != nil {
		err = errors.Wrap(err, "inserting job")
		return "", errors.WithDetailf(err, "Handler: %s", s.Handler)
	}
	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "committing submit transaction")
	}
	return id, nil
}

// Query reports the native state of the job with handle id. Handles the
// engine has never seen report StateQueued.
func (q *Queue) Query(ctx context.Context, id string) (Result, error) {
	var (
		status string
		reason sql.NullString
		result sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT status, error, result FROM jobs WHERE id = ?`, id,
	).Scan(&status, &reason, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{State: StateQueued}, nil
	}
	if err != nil {
		return Result{}, errors.Wrapf(err, "querying job %s", id)
	}

	r := Result{State: State(status), Reason: reason.String}
	if result.Valid {
		r.Payload = json.RawMessage(result.String)
	}
	return r, nil
}

// Dequeue claims the oldest runnable job and marks it started. It returns
// nil when nothing is runnable. The claim happens inside one write
// transaction so two workers never receive the same job.
//
// The returned job's Attempts is the claim: Complete, Fail and Release only
// apply while the stored job is still started with that attempt count.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning dequeue transaction")
	}
	defer tx.Rollback()

	now := q.now().UTC()
	var (
		job     Job
		status  string
		payload sql.NullString
		key     sql.NullString
		lastErr sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, handler, payload, idempotency_key, status, attempts, error, created_at
		 FROM jobs
		 WHERE status IN (?, ?) AND run_after <= ?
		 ORDER BY created_at ASC LIMIT 1`,
		StateQueued, StateRetrying, now.UnixNano(),
	).Scan(&job.ID, &job.Handler, &payload, &key, &status, &job.Attempts, &lastErr, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting runnable job")
	}

	job.Attempts++
	job.State = StateStarted
	job.Payload = json.RawMessage(payload.String)
	job.IdempotencyKey = key.String
	job.Error = lastErr.String

	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, claimed_at = ?, started_at = ?, updated_at = ? WHERE id = ?`,
		StateStarted, job.Attempts, now.UnixNano(), now, now, job.ID,
	)
	if err != nil {
		return nil, errors.WithDetailf(errors.Wrap(err, "marking job started"), "Job ID: %s", job.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing dequeue transaction")
	}
	return &job, nil
}

// Complete records a successful execution and its result payload. It
// returns ErrClaimLost when job is no longer held by the caller.
func (q *Queue) Complete(ctx context.Context, job *Job, result json.RawMessage) error {
	now := q.now().UTC()
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error = NULL, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND attempts = ?`,
		StateSucceeded, nullString(string(result)), now, now, job.ID, StateStarted, job.Attempts,
	)
	if err != nil {
		return errors.WithDetailf(errors.Wrap(err, "completing job"), "Job ID: %s", job.ID)
	}
	return checkClaim(res, job)
}

// Fail records a failed execution. Permanent errors and jobs out of
// attempts become StateFailed; anything else is scheduled for a retry with
// exponential backoff and reported as StateRetrying. It returns the state
// the job was moved to, or ErrClaimLost when job is no longer held by the
// caller.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) (State, error) {
	now := q.now().UTC()
	reason := cause.Error()

	if IsPermanent(cause) || job.Attempts >= q.maxAttempts {
		res, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error = ?, completed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ? AND attempts = ?`,
			StateFailed, reason, now, now, job.ID, StateStarted, job.Attempts,
		)
		if err != nil {
			return "", errors.WithDetailf(errors.Wrap(err, "failing job"), "Job ID: %s", job.ID)
		}
		if err := checkClaim(res, job); err != nil {
			return "", err
		}
		return StateFailed, nil
	}

	runAfter := now.Add(q.backoff(job.Attempts))
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, run_after = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND attempts = ?`,
		StateRetrying, reason, runAfter.UnixNano(), now, job.ID, StateStarted, job.Attempts,
	)
	if err != nil {
		return "", errors.WithDetailf(errors.Wrap(err, "scheduling retry"), "Job ID: %s", job.ID)
	}
	if err := checkClaim(res, job); err != nil {
		return "", err
	}
	return StateRetrying, nil
}

// Release hands a started job back to the queue without consuming an
// attempt. Used when a worker is shut down mid-execution.
func (q *Queue) Release(ctx context.Context, job *Job) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND attempts = ?`,
		StateRetrying, max(job.Attempts-1, 0), q.now().UTC(), job.ID, StateStarted, job.Attempts,
	)
	if err != nil {
		return errors.WithDetailf(errors.Wrap(err, "releasing job"), "Job ID: %s", job.ID)
	}
	return checkClaim(res, job)
}

// RecoverOrphans moves jobs whose claim is older than the orphan lease
// back to retrying. Jobs claimed more recently are assumed to be running in
// another process that shares the database. The lease must exceed the
// longest expected execution; a recovered job that is in fact still running
// loses its claim and its outcome is discarded.
func (q *Queue) RecoverOrphans(ctx context.Context) (int, error) {
	now := q.now().UTC()
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, run_after = 0, updated_at = ? WHERE status = ? AND claimed_at <= ?`,
		StateRetrying, now, StateStarted, now.Add(-q.orphanAfter).UnixNano(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "recovering orphaned jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting recovered jobs")
	}
	return int(n), nil
}

func checkClaim(res sql.Result, job *Job) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting updated jobs")
	}
	if n == 0 {
		return errors.WithDetailf(
			errors.Wrapf(ErrClaimLost, "job %s attempt %d", job.ID, job.Attempts),
			"Job ID: %s", job.ID)
	}
	return nil
}

// backoff returns the delay before retry number attempt: base, 2*base,
// 4*base, capped at ten minutes.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.retryBackoff
	for i := 1; i < attempt && d < maxRetryBackoff; i++ {
		d *= 2
	}
	return min(d, maxRetryBackoff)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
