// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine is the execution engine that runs extraction work units
// asynchronously. Jobs are persisted in SQLite, claimed by a worker pool
// and executed by handlers registered by name.
//
// The engine reports a small native state vocabulary. Like most task
// queues it cannot tell a job that was never submitted from one that is
// waiting to be scheduled: Query reports StateQueued for both. Callers that
// need to distinguish the two must keep their own record of submitted
// handles.
package engine

import (
	"encoding/json"
	"time"
)

// State is the engine's native job state.
type State string

const (
	StateQueued    State = "QUEUED"
	StateStarted   State = "STARTED"
	StateRetrying  State = "RETRYING"
	StateFailed    State = "FAILED"
	StateSucceeded State = "SUCCEEDED"
)

// Terminal reports whether no further execution will happen in state s.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateSucceeded
}

// Submission describes a unit of work to run.
type Submission struct {
	// Handler names the registered handler that executes the job.
	Handler string

	// Payload is handler-specific input, owned by the handler.
	Payload json.RawMessage

	// IdempotencyKey collapses repeated submissions: while a job with the
	// same key is queued, started or retrying, Submit returns its id.
	IdempotencyKey string
}

// Result is what Query reports about a job handle.
type Result struct {
	State State

	// Reason carries the failure message when State is StateFailed, and the
	// last transient error while StateRetrying.
	Reason string

	// Payload is the handler's return value when State is StateSucceeded.
	Payload json.RawMessage
}

// Job is a persisted unit of work.
type Job struct {
	ID             string
	Handler        string
	Payload        json.RawMessage
	IdempotencyKey string
	State          State
	Attempts       int
	Error          string
	Result         json.RawMessage
	CreatedAt      time.Time
}
