// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/internal/notify"
	"github.com/pdiddy/fulltext/internal/retrieve"
	"github.com/pdiddy/fulltext/internal/store"
	"github.com/pdiddy/fulltext/pkg/types"
)

// Retriever fetches a document by URL. It reports absent documents with
// retrieve.ErrDoesNotExist.
type Retriever interface {
	Retrieve(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns document bytes into text.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// Worker performs one extraction. Running it repeatedly for the same key
// and document is safe: the product is overwritten, never accumulated.
type Worker struct {
	retriever Retriever
	extractor Extractor
	store     store.Store
	publisher notify.Publisher
	stream    string
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewWorker wires a worker. publisher may be nil to skip notifications;
// stream names the event stream products are announced on.
func NewWorker(r Retriever, x Extractor, st store.Store, publisher notify.Publisher, stream string, logger *zap.SugaredLogger) *Worker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{
		retriever: r,
		extractor: x,
		store:     st,
		publisher: publisher,
		stream:    stream,
		logger:    logger.Named("worker"),
		now:       time.Now,
	}
}

// Run retrieves the document, extracts its text and stores the product
// stamped with the current extractor version.
//
// A document that does not exist fails permanently with
// ErrDocumentNotFound; a disallowed source or an oversized document also
// fails permanently. Every other failure is returned as is and may be
// retried by the engine.
func (w *Worker) Run(ctx context.Context, paperID, documentURL string, idType types.IDType) (*types.ExtractionProduct, error) {
	log := w.logger.With(logging.FieldPaperID, paperID, logging.FieldIDType, idType)

	pdf, err := w.retriever.Retrieve(ctx, documentURL)
	switch {
	case errors.Is(err, retrieve.ErrDoesNotExist):
		log.Warnw("document does not exist", "url", documentURL)
		return nil, engine.Permanent(errors.Mark(
			errors.Wrapf(err, "document not found at %s", documentURL), ErrDocumentNotFound))
	case errors.Is(err, retrieve.ErrSourceNotAllowed), errors.Is(err, retrieve.ErrTooLarge):
		return nil, engine.Permanent(err)
	case err != nil:
		return nil, errors.Wrapf(err, "retrieving %s", documentURL)
	}

	content, err := w.extractor.Extract(ctx, pdf)
	if err != nil {
		return nil, errors.Wrapf(err, "extracting %s/%s", idType, paperID)
	}

	product := types.ExtractionProduct{
		PaperID:   paperID,
		IDType:    idType,
		Version:   types.ExtractorVersion,
		Content:   content,
		CreatedAt: w.now().UTC(),
	}
	if err := w.store.PutProduct(ctx, product); err != nil {
		return nil, err
	}
	log.Infow("extraction product stored", logging.FieldVersion, product.Version, "bytes", len(content))

	if w.publisher != nil {
		err := w.publisher.Publish(ctx, notify.Event{
			Stream:    w.stream,
			PaperID:   paperID,
			IDType:    idType,
			Version:   product.Version,
			CreatedAt: product.CreatedAt,
		})
		if err != nil {
			log.Warnw("failed to announce product", logging.FieldError, err)
		}
	}
	return &product, nil
}
