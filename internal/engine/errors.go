// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import "github.com/cockroachdb/errors"

var errPermanent = errors.New("permanent failure")

// Permanent marks err as not worth retrying. A handler returning a
// permanent error fails its job immediately regardless of attempts left.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errPermanent)
}

// IsPermanent reports whether err, or anything it wraps, was marked by
// Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

// ErrNoHandler is returned for jobs whose handler is not registered.
var ErrNoHandler = errors.New("no handler registered")

// ErrClaimLost is returned when a worker records an outcome for a job it no
// longer holds: the job was recovered as an orphan and claimed again, or
// already reached a terminal state.
var ErrClaimLost = errors.New("job claim lost")
