// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/internal/retrieve"
	"github.com/pdiddy/fulltext/pkg/types"
)

const (
	testPaper = "1234.56789"
	testURL   = "https://arxiv.org/pdf/1234.56789"
)

var testKey = types.Key{PaperID: testPaper, IDType: types.IDArxiv}

func newTestOrchestrator() (*Orchestrator, *fakeEngine, *memStore) {
	eng := newFakeEngine()
	st := newMemStore()
	o := NewOrchestrator(eng, st, retrieve.Allowlist{"arxiv.org"}, nil)
	o.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return o, eng, st
}

func TestCreate_StoresPlaceholder(t *testing.T) {
	o, eng, st := newTestOrchestrator()

	taskID, err := o.Create(context.Background(), testPaper, testURL, types.IDArxiv)
	require.NoError(t, err)
	assert.Equal(t, "H1", taskID)

	p, err := st.GetPlaceholder(context.Background(), testKey)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "H1", p.TaskID)
	assert.Equal(t, testPaper, p.PaperID)
	assert.Equal(t, types.IDArxiv, p.IDType)

	require.Len(t, eng.submissions, 1)
	sub := eng.submissions[0]
	assert.Equal(t, HandlerName, sub.Handler)
	assert.Equal(t, "arxiv/1234.56789@"+types.ExtractorVersion, sub.IdempotencyKey)
	assert.JSONEq(t, `{"paper_id":"1234.56789","document_url":"https://arxiv.org/pdf/1234.56789","id_type":"arxiv"}`, string(sub.Payload))
}

func TestCreate_SubmitFailure(t *testing.T) {
	o, eng, st := newTestOrchestrator()
	eng.submitErr = errBoom

	_, err := o.Create(context.Background(), testPaper, testURL, types.IDArxiv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskCreationFailed))

	p, err := st.GetPlaceholder(context.Background(), testKey)
	require.NoError(t, err)
	assert.Nil(t, p, "no placeholder after a failed submission")
}

func TestCreate_PlaceholderFailure(t *testing.T) {
	o, eng, st := newTestOrchestrator()
	st.putPlaceholder = errBoom

	_, err := o.Create(context.Background(), testPaper, testURL, types.IDArxiv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskCreationFailed))
	assert.Len(t, eng.submissions, 1, "the job was submitted before the store failed")
	assert.Contains(t, errors.GetAllDetails(err), "orphaned task: H1")
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		paperID string
		url     string
		idType  types.IDType
		wantErr error
	}{
		{"empty paper id", "", testURL, types.IDArxiv, ErrInvalidRequest},
		{"bad id type", testPaper, testURL, types.IDType("doi"), ErrInvalidRequest},
		{"empty url", testPaper, "", types.IDArxiv, ErrInvalidRequest},
		{"disallowed source", testPaper, "https://example.com/paper.pdf", types.IDArxiv, ErrSourceNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, eng, _ := newTestOrchestrator()
			_, err := o.Create(context.Background(), tt.paperID, tt.url, tt.idType)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, eng.submissions, "rejected before submission")
		})
	}
}

func TestCreate_NilPolicyAcceptsAnySource(t *testing.T) {
	o := NewOrchestrator(newFakeEngine(), newMemStore(), nil, nil)
	_, err := o.Create(context.Background(), testPaper, "https://mirror.example.com/x.pdf", types.IDArxiv)
	assert.NoError(t, err)
}

func TestGet_CreateThenGetIsInProgress(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	ctx := context.Background()

	taskID, err := o.Create(ctx, testPaper, testURL, types.IDArxiv)
	require.NoError(t, err)

	task, err := o.Get(ctx, testPaper, types.IDArxiv)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, task.Status)
	assert.Equal(t, taskID, task.TaskID)
	assert.Nil(t, task.Result)
	assert.Empty(t, task.Reason)
}

func TestGet_NeverSubmitted(t *testing.T) {
	o, eng, _ := newTestOrchestrator()

	_, err := o.Get(context.Background(), testPaper, types.IDArxiv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchTask))
	assert.Zero(t, eng.queries, "engine must not be consulted without a handle")
}

func TestGet_States(t *testing.T) {
	tests := []struct {
		name       string
		res        engine.Result
		withProd   bool
		wantStatus types.Status
		wantReason string
	}{
		{"started", engine.Result{State: engine.StateStarted}, false, types.StatusInProgress, ""},
		{"retrying", engine.Result{State: engine.StateRetrying}, false, types.StatusInProgress, ""},
		{"failed", engine.Result{State: engine.StateFailed, Reason: "document not found"}, false, types.StatusFailed, "document not found"},
		{"succeeded", engine.Result{State: engine.StateSucceeded}, true, types.StatusSucceeded, ""},
		{"succeeded without product", engine.Result{State: engine.StateSucceeded}, false, types.StatusFailed, "missing product"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, eng, st := newTestOrchestrator()
			ctx := context.Background()

			taskID, err := o.Create(ctx, testPaper, testURL, types.IDArxiv)
			require.NoError(t, err)
			if tt.withProd {
				require.NoError(t, st.PutProduct(ctx, types.ExtractionProduct{
					PaperID: testPaper, IDType: types.IDArxiv, Version: "0.3", Content: "hello",
				}))
			}
			eng.set(taskID, tt.res)

			task, err := o.Get(ctx, testPaper, types.IDArxiv)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, task.Status)
			assert.Equal(t, tt.wantReason, task.Reason)
			assert.Equal(t, taskID, task.TaskID)
			if tt.wantStatus == types.StatusSucceeded {
				require.NotNil(t, task.Result)
				assert.Equal(t, "hello", task.Result.Content)
				assert.Equal(t, "0.3", task.Result.Version)
			} else {
				assert.Nil(t, task.Result)
			}
		})
	}
}

func TestGet_ProductWithoutPlaceholder(t *testing.T) {
	o, eng, st := newTestOrchestrator()
	ctx := context.Background()
	require.NoError(t, st.PutProduct(ctx, types.ExtractionProduct{
		PaperID: testPaper, IDType: types.IDArxiv, Version: "0.3", Content: "hello",
	}))

	task, err := o.Get(ctx, testPaper, types.IDArxiv)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSucceeded, task.Status)
	assert.Empty(t, task.TaskID)
	assert.Equal(t, "hello", task.Result.Content)
	assert.Zero(t, eng.queries)
}

func TestGet_IsIdempotent(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	ctx := context.Background()
	_, err := o.Create(ctx, testPaper, testURL, types.IDArxiv)
	require.NoError(t, err)

	first, err := o.Get(ctx, testPaper, types.IDArxiv)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := o.Get(ctx, testPaper, types.IDArxiv)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGet_StoreFailurePropagates(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	o.store = failingStore{newMemStore()}

	_, err := o.Get(context.Background(), testPaper, types.IDArxiv)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSuchTask))
}

type failingStore struct{ *memStore }

func (failingStore) GetPlaceholder(context.Context, types.Key) (*types.ExtractionPlaceholder, error) {
	return nil, errBoom
}
