// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extraction orchestrates asynchronous text extraction: it creates
// tasks, reports their status by reconciling the execution engine's view
// with stored records, and implements the work unit the engine runs.
package extraction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/internal/store"
	"github.com/pdiddy/fulltext/pkg/types"
)

// Engine is the subset of the execution engine the orchestrator uses.
type Engine interface {
	Submit(ctx context.Context, s engine.Submission) (string, error)
	Query(ctx context.Context, taskID string) (engine.Result, error)
}

// SourcePolicy decides which document URLs may be submitted.
type SourcePolicy interface {
	Allowed(url string) bool
}

// Orchestrator creates extraction tasks and reports their status. It holds
// no mutable state; all coordination lives in the store and the engine.
type Orchestrator struct {
	engine  Engine
	store   store.Store
	sources SourcePolicy
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewOrchestrator wires an orchestrator. A nil sources policy accepts every
// URL.
func NewOrchestrator(eng Engine, st store.Store, sources SourcePolicy, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{
		engine:  eng,
		store:   st,
		sources: sources,
		logger:  logger.Named("extraction"),
		now:     time.Now,
	}
}

// Create submits an extraction job for the document and records a
// placeholder pointing at it. It returns the job handle.
//
// Submissions carry an idempotency key derived from the identity key and
// the extractor version, so repeating Create while the job is still active
// returns the same handle. The key does not include documentURL: a repeat
// Create with a different URL while the job is active joins the existing
// job, which still retrieves the URL it was first submitted with. Once the
// job has finished, Create starts a new job and the placeholder is
// overwritten.
//
// If the placeholder cannot be written the job is already submitted and
// will run; it is logged and left alone.
func (o *Orchestrator) Create(ctx context.Context, paperID, documentURL string, idType types.IDType) (string, error) {
	if err := o.validate(paperID, documentURL, idType); err != nil {
		return "", err
	}

	key := types.Key{PaperID: paperID, IDType: idType}
	log := o.logger.With(logging.FieldPaperID, paperID, logging.FieldIDType, idType)

	payload, err := json.Marshal(Payload{PaperID: paperID, DocumentURL: documentURL, IDType: idType})
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "encoding job payload"), ErrTaskCreationFailed)
	}

	taskID, err := o.engine.Submit(ctx, engine.Submission{
		Handler:        HandlerName,
		Payload:        payload,
		IdempotencyKey: key.String() + "@" + types.ExtractorVersion,
	})
	if err != nil {
		log.Errorw("failed to submit extraction job", logging.FieldError, err)
		return "", errors.Mark(errors.Wrapf(err, "submitting extraction for %s", key), ErrTaskCreationFailed)
	}

	placeholder := types.ExtractionPlaceholder{
		TaskID:    taskID,
		PaperID:   paperID,
		IDType:    idType,
		CreatedAt: o.now().UTC(),
	}
	if err := o.store.PutPlaceholder(ctx, placeholder); err != nil {
		log.Errorw("extraction job submitted but placeholder not stored; job is orphaned",
			logging.FieldTaskID, taskID, logging.FieldError, err)
		err = errors.Wrapf(err, "storing placeholder for %s", key)
		err = errors.WithDetailf(err, "orphaned task: %s", taskID)
		return "", errors.Mark(err, ErrTaskCreationFailed)
	}

	log.Infow("extraction task created", logging.FieldTaskID, taskID)
	return taskID, nil
}

func (o *Orchestrator) validate(paperID, documentURL string, idType types.IDType) error {
	if paperID == "" {
		return errors.Wrap(ErrInvalidRequest, "paper id must not be empty")
	}
	if _, err := types.ParseIDType(string(idType)); err != nil {
		return errors.Mark(err, ErrInvalidRequest)
	}
	if documentURL == "" {
		return errors.Wrap(ErrInvalidRequest, "document url must not be empty")
	}
	if o.sources != nil && !o.sources.Allowed(documentURL) {
		return errors.Wrapf(ErrSourceNotAllowed, "document url %s", documentURL)
	}
	return nil
}

// Get reports the status of the extraction for a key. When neither a
// placeholder nor a product exists it returns ErrNoSuchTask without
// consulting the engine. A product stored without a placeholder is
// reported as succeeded with no task id.
func (o *Orchestrator) Get(ctx context.Context, paperID string, idType types.IDType) (*types.ExtractionTask, error) {
	key := types.Key{PaperID: paperID, IDType: idType}

	placeholder, err := o.store.GetPlaceholder(ctx, key)
	if err != nil {
		return nil, err
	}
	product, err := o.store.GetProduct(ctx, key)
	if err != nil {
		return nil, err
	}

	task := &types.ExtractionTask{PaperID: paperID, IDType: idType}

	if placeholder == nil {
		if product == nil {
			return nil, errors.Wrapf(ErrNoSuchTask, "%s", key)
		}
		task.Status = types.StatusSucceeded
		task.Result = product
		return task, nil
	}

	task.TaskID = placeholder.TaskID
	res, err := o.engine.Query(ctx, placeholder.TaskID)
	if err != nil {
		return nil, errors.Wrapf(err, "querying task %s", placeholder.TaskID)
	}

	status, reason, err := Reconcile(res, true, product)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", key)
	}
	task.Status = status
	switch status {
	case types.StatusSucceeded:
		task.Result = product
	case types.StatusFailed:
		task.Reason = reason
		if reason == reasonMissingProduct {
			o.logger.Warnw("engine reports success but no product is stored",
				logging.FieldPaperID, paperID, logging.FieldIDType, idType, logging.FieldTaskID, task.TaskID)
		}
	}
	return task, nil
}
