// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textextract turns PDF bytes into plain text with pluggable
// backends.
package textextract

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/container"
	"github.com/pdiddy/fulltext/pkg/types"
)

// ErrEmptyOutput is returned when a backend ran successfully but produced
// no text.
var ErrEmptyOutput = errors.New("extraction produced empty output")

// Extractor transforms a PDF document into plain text. Different backends
// (the sandboxed extractor image, local pdftotext) implement this
// interface.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// New returns the extractor selected by cfg.Backend. The container backend
// detects docker or podman and verifies the image is present.
func New(ctx context.Context, cfg types.ExtractorConfig) (Extractor, error) {
	switch cfg.Backend {
	case types.BackendContainer, "":
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewContainerExtractor(ctx, rt, cfg.Image)
	case types.BackendPdftotext:
		return NewPdftotextExtractor()
	default:
		return nil, errors.Newf("unknown extractor backend %q", cfg.Backend)
	}
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Normalize strips trailing whitespace from each line, converts form
// feeds to blank lines, and collapses runs of blank lines to one.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}

// finish normalizes raw backend output and rejects empty text.
func finish(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyOutput
	}
	return Normalize(raw), nil
}
