package importing

import (
	"time"

	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// JobStatus is the lifecycle state of an import job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusError     JobStatus = "error"
)

// Platform identifies the sales platform a CSV export came from.
type Platform string

const (
	PlatformHotmart Platform = "hotmart"
	PlatformCustom  Platform = "custom"
)

// PaidStatus returns the exact status value that marks a paid sale for
// the platform. Custom imports carry their own value on the job.
func (p Platform) PaidStatus() string {
	if p == PlatformHotmart {
		return "Aprovado"
	}
	return ""
}

// RowOutcome classifies the result of syncing one row.
type RowOutcome string

const (
	OutcomeCreated  RowOutcome = "created"
	OutcomeExisting RowOutcome = "existing"
	OutcomeSkipped  RowOutcome = "skipped"
	OutcomeError    RowOutcome = "error"
)

// Counters tracks per-outcome row totals for a job.
type Counters struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Existing  int `json:"existing"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// MaxRecentErrors bounds the error log kept on the job document.
const MaxRecentErrors = 50

// ImportJob is the aggregate tracking one CSV import run. Progress fields
// are persisted so an interrupted run can resume from LastOffset.
type ImportJob struct {
	shared.BaseAggregateRoot
	Platform     Platform
	PaidStatus   string
	Mapping      csvimport.ColumnMapping
	Filename     string
	StageID      string
	TotalRows    int
	Counters     Counters
	LastOffset   int
	Status       JobStatus
	RecentErrors []string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	FailureCause string
}

// NewImportJob creates a queued job for a validated file.
func NewImportJob(platform Platform, paidStatus string, mapping csvimport.ColumnMapping, filename, stageID string, totalRows int) *ImportJob {
	if paidStatus == "" {
		paidStatus = platform.PaidStatus()
	}
	job := &ImportJob{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Platform:          platform,
		PaidStatus:        paidStatus,
		Mapping:           mapping,
		Filename:          filename,
		StageID:           stageID,
		TotalRows:         totalRows,
		Status:            JobStatusQueued,
	}
	job.AddDomainEvent(NewImportJobQueuedEvent(job))
	return job
}

// Start moves the job into the running state.
func (j *ImportJob) Start() error {
	if j.Status != JobStatusQueued && j.Status != JobStatusRunning {
		return shared.ErrInvalidState
	}
	if j.Status == JobStatusQueued {
		now := time.Now()
		j.StartedAt = &now
	}
	j.Status = JobStatusRunning
	j.Touch()
	return nil
}

// RecordRow applies one row outcome and advances the resume offset.
func (j *ImportJob) RecordRow(offset int, outcome RowOutcome, errMsg string) error {
	if j.Status != JobStatusRunning {
		return shared.ErrInvalidState
	}
	j.Counters.Processed++
	switch outcome {
	case OutcomeCreated:
		j.Counters.Created++
	case OutcomeExisting:
		j.Counters.Existing++
	case OutcomeSkipped:
		j.Counters.Skipped++
	case OutcomeError:
		j.Counters.Errors++
		if errMsg != "" {
			// Keep the newest errors: drop the oldest entry when full.
			if len(j.RecentErrors) >= MaxRecentErrors {
				j.RecentErrors = j.RecentErrors[len(j.RecentErrors)-MaxRecentErrors+1:]
			}
			j.RecentErrors = append(j.RecentErrors, errMsg)
		}
	}
	j.LastOffset = offset + 1
	j.Touch()
	return nil
}

// Complete finishes a running job.
func (j *ImportJob) Complete() error {
	if j.Status != JobStatusRunning {
		return shared.ErrInvalidState
	}
	j.Status = JobStatusCompleted
	now := time.Now()
	j.FinishedAt = &now
	j.Touch()
	j.AddDomainEvent(NewImportJobFinishedEvent(j))
	return nil
}

// Cancel stops a queued or running job. Cancelling a finished job is a
// no-op error so callers can surface it.
func (j *ImportJob) Cancel() error {
	if j.Status != JobStatusQueued && j.Status != JobStatusRunning {
		return shared.ErrInvalidState
	}
	j.Status = JobStatusCancelled
	now := time.Now()
	j.FinishedAt = &now
	j.Touch()
	j.AddDomainEvent(NewImportJobFinishedEvent(j))
	return nil
}

// Fail marks the job as errored with a cause.
func (j *ImportJob) Fail(cause string) error {
	if j.Status != JobStatusQueued && j.Status != JobStatusRunning {
		return shared.ErrInvalidState
	}
	j.Status = JobStatusError
	j.FailureCause = cause
	now := time.Now()
	j.FinishedAt = &now
	j.Touch()
	j.AddDomainEvent(NewImportJobFinishedEvent(j))
	return nil
}

// Active reports whether the job still accepts row work.
func (j *ImportJob) Active() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusRunning
}

// Progress returns the completion ratio in percent.
func (j *ImportJob) Progress() int {
	if j.TotalRows == 0 {
		return 0
	}
	return j.Counters.Processed * 100 / j.TotalRows
}
