// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/pkg/types"
)

// HandlerName routes extraction jobs to Handler.
const HandlerName = "fulltext.extract"

// Payload is the job input for an extraction.
type Payload struct {
	PaperID     string       `json:"paper_id"`
	DocumentURL string       `json:"document_url"`
	IDType      types.IDType `json:"id_type"`
}

// Outcome is the job result recorded by the engine on success. It holds
// the product's identity, not its content.
type Outcome struct {
	PaperID string       `json:"paper_id"`
	IDType  types.IDType `json:"id_type"`
	Version string       `json:"version"`
}

// Handler adapts a Worker to the execution engine.
type Handler struct {
	worker *Worker
}

// NewHandler returns an engine handler that runs w.
func NewHandler(w *Worker) *Handler {
	return &Handler{worker: w}
}

func (h *Handler) Name() string { return HandlerName }

func (h *Handler) Execute(ctx context.Context, job *engine.Job) (json.RawMessage, error) {
	var p Payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, engine.Permanent(errors.Wrap(err, "decoding extraction payload"))
	}

	product, err := h.worker.Run(ctx, p.PaperID, p.DocumentURL, p.IDType)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(Outcome{PaperID: product.PaperID, IDType: product.IDType, Version: product.Version})
	if err != nil {
		return nil, errors.Wrap(err, "encoding extraction outcome")
	}
	return out, nil
}
