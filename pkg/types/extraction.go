// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractorVersion signs every extraction product. It is set at build time
// via ldflags and must only be bumped when the extraction process itself
// changes, not when the orchestration or API changes.
var ExtractorVersion = "0.3"

// Status is the domain-level state of an extraction task.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// ExtractionTask is the read model returned to callers polling for a
// result. It is derived on every lookup and never stored.
type ExtractionTask struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	IDType  IDType `json:"id_type" yaml:"id_type"`
	TaskID  string `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Status  Status `json:"status" yaml:"status"`

	// Result is set only when Status is StatusSucceeded.
	Result *ExtractionProduct `json:"result,omitempty" yaml:"result,omitempty"`

	// Reason is set only when Status is StatusFailed.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
