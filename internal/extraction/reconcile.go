// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/pkg/types"
)

// Reconcile maps the engine's native state and the stored records for a key
// onto the domain status. It returns the status and, for failures, the
// reason. A queued state without a placeholder yields ErrNoSuchTask.
//
// A queued state is ambiguous: the engine reports it both for jobs waiting
// to run and for handles it has never seen. The placeholder is what proves
// the task was accepted.
func Reconcile(res engine.Result, hasPlaceholder bool, product *types.ExtractionProduct) (types.Status, string, error) {
	switch res.State {
	case engine.StateSucceeded:
		if product == nil {
			return types.StatusFailed, reasonMissingProduct, nil
		}
		return types.StatusSucceeded, "", nil
	case engine.StateFailed:
		return types.StatusFailed, res.Reason, nil
	case engine.StateStarted, engine.StateRetrying:
		return types.StatusInProgress, "", nil
	case engine.StateQueued:
		if hasPlaceholder {
			return types.StatusInProgress, "", nil
		}
		return "", "", ErrNoSuchTask
	default:
		return "", "", errors.AssertionFailedf("unknown engine state %q", res.State)
	}
}
