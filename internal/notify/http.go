// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/httputil"
)

// HTTPPublisher POSTs events as JSON to an endpoint.
type HTTPPublisher struct {
	client    *http.Client
	endpoint  string
	token     string
	userAgent string
}

// NewHTTPPublisher builds a publisher for endpoint. token, when set, is
// sent as a bearer token. A nil client uses http.DefaultClient.
func NewHTTPPublisher(client *http.Client, endpoint, token, userAgent string) *HTTPPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPublisher{client: client, endpoint: endpoint, token: token, userAgent: userAgent}
}

func (p *HTTPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating event request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 2)
	if err != nil {
		return errors.Wrap(err, "event request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("event endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
