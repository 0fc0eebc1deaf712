// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// IDType identifies the namespace a paper ID belongs to.
type IDType string

const (
	// IDArxiv addresses a published arXiv paper (e.g. "1234.56789v2").
	IDArxiv IDType = "arxiv"

	// IDSubmission addresses a submission that has not been announced yet.
	IDSubmission IDType = "submission"
)

// ParseIDType validates s and returns it as an IDType.
func ParseIDType(s string) (IDType, error) {
	switch t := IDType(strings.ToLower(strings.TrimSpace(s))); t {
	case IDArxiv, IDSubmission:
		return t, nil
	default:
		return "", errors.WithHint(
			errors.Newf("unsupported id type %q", s),
			"use arxiv or submission")
	}
}

// Key addresses every record belonging to one logical document.
type Key struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	IDType  IDType `json:"id_type" yaml:"id_type"`
}

// String encodes the key as "<id_type>/<paper_id>". Paper IDs may contain
// slashes (old-style arXiv IDs such as "hep-th/9901001"), so the id type is
// always the first segment.
func (k Key) String() string {
	return string(k.IDType) + "/" + k.PaperID
}

// ParseKey reverses Key.String.
func ParseKey(s string) (Key, error) {
	idType, paperID, ok := strings.Cut(s, "/")
	if !ok || paperID == "" {
		return Key{}, errors.Newf("malformed key %q", s)
	}
	t, err := ParseIDType(idType)
	if err != nil {
		return Key{}, err
	}
	return Key{PaperID: paperID, IDType: t}, nil
}

// ExtractionPlaceholder is written when a task is created, before any
// result exists. It is the only durable pointer to the engine job.
type ExtractionPlaceholder struct {
	// TaskID is the opaque job handle returned by the execution engine.
	TaskID string `json:"task_id" yaml:"task_id"`

	PaperID string `json:"paper_id" yaml:"paper_id"`
	IDType  IDType `json:"id_type" yaml:"id_type"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Key returns the identity key of the placeholder.
func (p ExtractionPlaceholder) Key() Key {
	return Key{PaperID: p.PaperID, IDType: p.IDType}
}

// ExtractionProduct is the versioned result of a successful extraction.
type ExtractionProduct struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	IDType  IDType `json:"id_type" yaml:"id_type"`

	// Version is the extractor version that produced Content. It is stamped
	// by the worker and never taken from the caller.
	Version string `json:"version" yaml:"version"`

	// Content is the extracted plain text.
	Content string `json:"content" yaml:"content"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Key returns the identity key of the product.
func (p ExtractionProduct) Key() Key {
	return Key{PaperID: p.PaperID, IDType: p.IDType}
}
