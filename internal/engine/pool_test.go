// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fulltext/pkg/types"
)

func newTestPool(t *testing.T, cfg types.EngineConfig, handlers ...Handler) (*Queue, *WorkerPool) {
	t.Helper()
	q := newTestQueue(t, cfg)
	reg := NewRegistry()
	for _, h := range handlers {
		reg.Register(h)
	}
	return q, NewWorkerPool(q, reg, cfg, nil)
}

func echoHandler() Handler {
	return HandlerFunc{
		HandlerName: "echo",
		Fn: func(_ context.Context, job *Job) (json.RawMessage, error) {
			return job.Payload, nil
		},
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoHandler())
	reg.Register(HandlerFunc{HandlerName: "alpha"})

	assert.NotNil(t, reg.Get("echo"))
	assert.Nil(t, reg.Get("missing"))
	assert.Equal(t, []string{"alpha", "echo"}, reg.Names())
	assert.Panics(t, func() { reg.Register(echoHandler()) })
}

func TestProcessNext_Success(t *testing.T) {
	q, pool := newTestPool(t, types.EngineConfig{}, echoHandler())
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "echo", Payload: json.RawMessage(`{"x":"y"}`)})
	require.NoError(t, err)

	processed, err := pool.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.JSONEq(t, `{"x":"y"}`, string(res.Payload))

	processed, err = pool.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed, "queue should be empty")
}

func TestProcessNext_TransientErrorRetries(t *testing.T) {
	var calls atomic.Int32
	flaky := HandlerFunc{
		HandlerName: "flaky",
		Fn: func(context.Context, *Job) (json.RawMessage, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("temporary outage")
			}
			return json.RawMessage(`{}`), nil
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{MaxAttempts: 3, RetryBackoff: time.Nanosecond}, flaky)
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "flaky"})
	require.NoError(t, err)

	_, err = pool.ProcessNext(ctx)
	require.NoError(t, err)
	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateRetrying, res.State)

	time.Sleep(time.Millisecond)
	_, err = pool.ProcessNext(ctx)
	require.NoError(t, err)
	res, err = q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProcessNext_PermanentErrorFailsImmediately(t *testing.T) {
	h := HandlerFunc{
		HandlerName: "doomed",
		Fn: func(context.Context, *Job) (json.RawMessage, error) {
			return nil, Permanent(errors.New("document does not exist"))
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{MaxAttempts: 5}, h)
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "doomed"})
	require.NoError(t, err)
	_, err = pool.ProcessNext(ctx)
	require.NoError(t, err)

	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Reason, "document does not exist")
}

func TestProcessNext_MissingHandler(t *testing.T) {
	q, pool := newTestPool(t, types.EngineConfig{})
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "unregistered"})
	require.NoError(t, err)
	processed, err := pool.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Reason, "unregistered")
}

func TestProcessNext_PanicBecomesFailure(t *testing.T) {
	h := HandlerFunc{
		HandlerName: "panicky",
		Fn: func(context.Context, *Job) (json.RawMessage, error) {
			panic("nil map")
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{MaxAttempts: 3}, h)
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "panicky"})
	require.NoError(t, err)
	_, err = pool.ProcessNext(ctx)
	require.NoError(t, err)

	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Reason, "nil map")
}

func TestProcessNext_CancelledJobIsReleased(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := HandlerFunc{
		HandlerName: "slow",
		Fn: func(ctx context.Context, _ *Job) (json.RawMessage, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{}, h)

	id, err := q.Submit(context.Background(), Submission{Handler: "slow"})
	require.NoError(t, err)
	_, err = pool.ProcessNext(ctx)
	require.NoError(t, err)

	res, err := q.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateRetrying, res.State)
}

func TestWorkerPool_StartStop(t *testing.T) {
	cfg := types.EngineConfig{Workers: 2, PollInterval: 5 * time.Millisecond}
	q, pool := newTestPool(t, cfg, echoHandler())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Submit(ctx, Submission{Handler: "echo"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		for _, id := range ids {
			res, err := q.Query(ctx, id)
			if err != nil || res.State != StateSucceeded {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	pool.Stop()
	pool.Stop() // second stop is a no-op
}

func TestWorkerPool_StartRecoversOrphans(t *testing.T) {
	cfg := types.EngineConfig{PollInterval: 5 * time.Millisecond}
	q, pool := newTestPool(t, cfg, echoHandler())
	ctx := context.Background()

	id, err := q.Submit(ctx, Submission{Handler: "echo"})
	require.NoError(t, err)
	_, err = q.Dequeue(ctx) // simulate a crash mid-execution
	require.NoError(t, err)
	// The claim outlived the orphan lease.
	q.now = func() time.Time { return time.Now().Add(time.Hour) }

	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		res, err := q.Query(ctx, id)
		return err == nil && res.State == StateSucceeded
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessNext_CompletesAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := HandlerFunc{
		HandlerName: "done",
		Fn: func(_ context.Context, _ *Job) (json.RawMessage, error) {
			cancel()
			return json.RawMessage(`{"ok":true}`), nil
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{}, h)

	id, err := q.Submit(context.Background(), Submission{Handler: "done"})
	require.NoError(t, err)
	processed, err := pool.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	res, err := q.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
}

func TestProcessNext_ReclaimedJobKeepsOtherOutcome(t *testing.T) {
	ctx := context.Background()
	var q *Queue
	var stale *Job
	h := HandlerFunc{
		HandlerName: "dup",
		Fn: func(ctx context.Context, job *Job) (json.RawMessage, error) {
			// A second worker reclaims the job and finishes it first.
			q.now = func() time.Time { return time.Now().Add(time.Hour) }
			n, err := q.RecoverOrphans(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, n)
			again, err := q.Dequeue(ctx)
			require.NoError(t, err)
			require.NotNil(t, again)
			require.NoError(t, q.Complete(ctx, again, json.RawMessage(`{"by":"other"}`)))
			stale = job
			return nil, errors.New("transient")
		},
	}
	q, pool := newTestPool(t, types.EngineConfig{}, h)

	id, err := q.Submit(ctx, Submission{Handler: "dup"})
	require.NoError(t, err)
	processed, err := pool.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	require.NotNil(t, stale)

	res, err := q.Query(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.JSONEq(t, `{"by":"other"}`, string(res.Payload))
}
