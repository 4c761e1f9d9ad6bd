package importing

import (
	"github.com/brandinglab/backend/internal/domain/shared"
)

// Event types published by the importing context.
const (
	EventImportJobQueued   = "importing.job.queued"
	EventImportJobFinished = "importing.job.finished"
)

// ImportJobQueuedEvent is published when a job is accepted.
type ImportJobQueuedEvent struct {
	shared.BaseDomainEvent
	Platform  Platform `json:"platform"`
	Filename  string   `json:"filename"`
	TotalRows int      `json:"total_rows"`
}

// NewImportJobQueuedEvent creates the queued event for a job.
func NewImportJobQueuedEvent(job *ImportJob) *ImportJobQueuedEvent {
	return &ImportJobQueuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventImportJobQueued, "ImportJob", job.ID),
		Platform:        job.Platform,
		Filename:        job.Filename,
		TotalRows:       job.TotalRows,
	}
}

// ImportJobFinishedEvent is published on completion, cancellation or failure.
type ImportJobFinishedEvent struct {
	shared.BaseDomainEvent
	Status   JobStatus `json:"status"`
	Counters Counters  `json:"counters"`
}

// NewImportJobFinishedEvent creates the terminal event for a job.
func NewImportJobFinishedEvent(job *ImportJob) *ImportJobFinishedEvent {
	return &ImportJobFinishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventImportJobFinished, "ImportJob", job.ID),
		Status:          job.Status,
		Counters:        job.Counters,
	}
}
