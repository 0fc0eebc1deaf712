// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify announces newly stored extraction products to downstream
// consumers. Publication is fire-and-forget: a lost event never affects
// what callers see when they poll for a task.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/pkg/types"
)

// Event announces that a product became available.
type Event struct {
	Stream    string       `json:"stream"`
	PaperID   string       `json:"paper_id"`
	IDType    types.IDType `json:"id_type"`
	Version   string       `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
}

// Publisher delivers events to a stream.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the log. It is used when no endpoint is
// configured.
type LogPublisher struct {
	Logger *zap.SugaredLogger
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	logger := p.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger.Infow("product available",
		"stream", ev.Stream,
		logging.FieldPaperID, ev.PaperID,
		logging.FieldIDType, ev.IDType,
		logging.FieldVersion, ev.Version)
	return nil
}

// DefaultPublishTimeout bounds a single best-effort publication.
const DefaultPublishTimeout = 10 * time.Second

// BestEffort wraps a Publisher so that failures are logged and dropped.
type BestEffort struct {
	next    Publisher
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewBestEffort wraps next. A zero timeout uses DefaultPublishTimeout.
func NewBestEffort(next Publisher, timeout time.Duration, logger *zap.SugaredLogger) *BestEffort {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &BestEffort{next: next, timeout: timeout, logger: logger.Named("notify")}
}

// Publish always returns nil.
func (b *BestEffort) Publish(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.next.Publish(ctx, ev); err != nil {
		b.logger.Warnw("failed to publish event",
			"stream", ev.Stream,
			logging.FieldPaperID, ev.PaperID,
			logging.FieldIDType, ev.IDType,
			logging.FieldError, err)
	}
	return nil
}

// New picks the publisher for cfg: HTTP when an endpoint is set, log-only
// otherwise. The result is always wrapped in BestEffort.
func New(cfg types.EventsConfig, token string, httpCfg types.HTTPConfig, logger *zap.SugaredLogger) Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	var next Publisher = LogPublisher{Logger: logger.Named("notify")}
	if cfg.Endpoint != "" {
		next = NewHTTPPublisher(nil, cfg.Endpoint, token, httpCfg.UserAgent)
	}
	return NewBestEffort(next, httpCfg.Timeout, logger)
}
