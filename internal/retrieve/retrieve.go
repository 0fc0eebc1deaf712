// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve downloads source documents from allow-listed origins.
package retrieve

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/fulltext/internal/httputil"
	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/pkg/types"
)

var (
	// ErrDoesNotExist is returned when the origin reports the document is
	// not there (HTTP 404 or 410). Retrying will not change the outcome.
	ErrDoesNotExist = errors.New("document does not exist")

	// ErrSourceNotAllowed is returned for URLs outside the allow-list.
	ErrSourceNotAllowed = errors.New("document source not allowed")

	// ErrTooLarge is returned when a document exceeds the configured cap.
	ErrTooLarge = errors.New("document too large")
)

const defaultMaxDocumentBytes = 100 << 20

// Client fetches documents over HTTP. Requests are paced by a token bucket
// so that many workers sharing one client stay polite to the origin.
type Client struct {
	http       *http.Client
	userAgent  string
	maxBytes   int64
	allow      Allowlist
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.SugaredLogger
}

// New builds a client from cfg. A nil httpClient gets one with the
// configured timeout.
func New(httpClient *http.Client, cfg types.Config, logger *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTP.Timeout}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	limit := rate.Inf
	if cfg.HTTP.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.HTTP.RequestsPerSecond)
	}
	maxBytes := cfg.HTTP.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}
	return &Client{
		http:      httpClient,
		userAgent: cfg.HTTP.UserAgent,
		maxBytes:  maxBytes,
		allow:     Allowlist(cfg.Sources.Allowlist),
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.Named("retrieve"),
	}
}

// Allowed reports whether url may be retrieved by this client.
func (c *Client) Allowed(url string) bool {
	return c.allow.Allowed(url)
}

// Retrieve downloads url and returns the document bytes. Documents larger
// than the configured cap fail with ErrTooLarge.
func (c *Client) Retrieve(ctx context.Context, url string) ([]byte, error) {
	if !c.allow.Allowed(url) {
		return nil, errors.Wrapf(ErrSourceNotAllowed, "retrieving %s", url)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	c.logger.Debugw("retrieving document", "url", url)
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", url)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, errors.Mark(errors.Newf("HTTP %d from %s", resp.StatusCode, url), ErrDoesNotExist)
	default:
		return nil, errors.Newf("HTTP %d from %s", resp.StatusCode, url)
	}

	if resp.ContentLength > c.maxBytes {
		return nil, tooLarge(url, c.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", url)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, tooLarge(url, c.maxBytes)
	}
	return data, nil
}

func tooLarge(url string, limit int64) error {
	return errors.WithHintf(
		errors.Wrapf(ErrTooLarge, "%s exceeds %d bytes", url, limit),
		"raise http.max_document_bytes to accept larger documents")
}
