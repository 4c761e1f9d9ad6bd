package dto

import (
	"time"

	"github.com/brandinglab/backend/internal/domain/importing"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// StartImportRequest carries the non-file fields of an import upload.
// The mapping arrives as a JSON-encoded object in a multipart field.
type StartImportRequest struct {
	Platform   string `form:"platform" binding:"required,oneof=hotmart custom"`
	PaidStatus string `form:"paid_status"`
	Mapping    string `form:"mapping"`
	TemplateID string `form:"template_id" binding:"omitempty,uuid"`
	StageID    string `form:"stage_id"`
	UseQueue   bool   `form:"use_queue"`
}

// PreviewResponse is what the mapping screen needs to configure an import.
type PreviewResponse struct {
	Headers             []string                `json:"headers"`
	Mapping             csvimport.ColumnMapping `json:"mapping"`
	DistinctStatuses    []string                `json:"distinct_statuses"`
	RowCount            int                     `json:"row_count"`
	CompatibleTemplates []TemplateResponse      `json:"compatible_templates"`
}

// JobResponse is the wire form of an import job.
type JobResponse struct {
	ID           string             `json:"id"`
	Platform     string             `json:"platform"`
	PaidStatus   string             `json:"paid_status"`
	Filename     string             `json:"filename"`
	StageID      string             `json:"stage_id,omitempty"`
	Status       string             `json:"status"`
	TotalRows    int                `json:"total_rows"`
	Progress     int                `json:"progress"`
	Counters     importing.Counters `json:"counters"`
	RecentErrors []string           `json:"recent_errors,omitempty"`
	FailureCause string             `json:"failure_cause,omitempty"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// NewJobResponse converts a job aggregate to its wire form.
func NewJobResponse(job *importing.ImportJob) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		Platform:     string(job.Platform),
		PaidStatus:   job.PaidStatus,
		Filename:     job.Filename,
		StageID:      job.StageID,
		Status:       string(job.Status),
		TotalRows:    job.TotalRows,
		Progress:     job.Progress(),
		Counters:     job.Counters,
		RecentErrors: job.RecentErrors,
		FailureCause: job.FailureCause,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
		CreatedAt:    job.CreatedAt,
	}
}

// NewJobResponses converts a job list.
func NewJobResponses(jobs []*importing.ImportJob) []JobResponse {
	out := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = NewJobResponse(job)
	}
	return out
}

// LockResponse is the wire form of the import lock.
type LockResponse struct {
	Owner       string             `json:"owner"`
	Filename    string             `json:"filename"`
	StartedAt   time.Time          `json:"started_at"`
	RefreshedAt time.Time          `json:"refreshed_at"`
	TotalRows   int                `json:"total_rows"`
	Counters    importing.Counters `json:"counters"`
}

// NewLockResponse converts an import lock to its wire form.
func NewLockResponse(lock *importing.ImportLock) LockResponse {
	return LockResponse{
		Owner:       lock.Owner,
		Filename:    lock.Filename,
		StartedAt:   lock.StartedAt,
		RefreshedAt: lock.RefreshedAt,
		TotalRows:   lock.TotalRows,
		Counters:    lock.Counters,
	}
}

// TemplateRequest creates or updates a mapping template.
type TemplateRequest struct {
	Name    string                  `json:"name" binding:"required,max=120"`
	Icon    string                  `json:"icon" binding:"max=60"`
	Mapping csvimport.ColumnMapping `json:"mapping" binding:"required"`
}

// TemplateResponse is the wire form of a mapping template.
type TemplateResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Icon      string                  `json:"icon,omitempty"`
	Mapping   csvimport.ColumnMapping `json:"mapping"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewTemplateResponse converts a template aggregate to its wire form.
func NewTemplateResponse(t *importing.MappingTemplate) TemplateResponse {
	return TemplateResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Icon:      t.Icon,
		Mapping:   t.Mapping,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// NewTemplateResponses converts a template list.
func NewTemplateResponses(templates []*importing.MappingTemplate) []TemplateResponse {
	out := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		out[i] = NewTemplateResponse(t)
	}
	return out
}
