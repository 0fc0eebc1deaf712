// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/retrieve"
)

var (
	// ErrTaskCreationFailed is returned by Create when the job could not be
	// submitted or its placeholder could not be stored.
	ErrTaskCreationFailed = errors.New("task creation failed")

	// ErrNoSuchTask is returned by Get when nothing was ever requested for
	// the key.
	ErrNoSuchTask = errors.New("no such task")

	// ErrDocumentNotFound classifies a worker failure caused by the source
	// document not existing. Jobs failing with it are not retried.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidRequest is returned by Create for malformed input.
	ErrInvalidRequest = errors.New("invalid extraction request")

	// ErrSourceNotAllowed is returned by Create for documents outside the
	// source allow-list.
	ErrSourceNotAllowed = retrieve.ErrSourceNotAllowed
)

// reasonMissingProduct is reported when the engine claims success but no
// product was stored.
const reasonMissingProduct = "missing product"
