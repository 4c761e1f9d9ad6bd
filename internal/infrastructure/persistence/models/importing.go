// Package models holds the gorm persistence models and their domain
// conversions.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// ImportJobModel is the persisted form of importing.ImportJob.
type ImportJobModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Platform     string    `gorm:"size:32;not null;index"`
	PaidStatus   string    `gorm:"size:64"`
	Mapping      []byte    `gorm:"type:jsonb"`
	Filename     string    `gorm:"size:255"`
	StageID      string    `gorm:"size:64"`
	TotalRows    int       `gorm:"not null"`
	Processed    int       `gorm:"not null"`
	Created      int       `gorm:"not null"`
	Existing     int       `gorm:"not null"`
	Skipped      int       `gorm:"not null"`
	Errors       int       `gorm:"not null"`
	LastOffset   int       `gorm:"not null"`
	Status       string    `gorm:"size:16;not null;index"`
	RecentErrors []byte    `gorm:"type:jsonb"`
	FailureCause string    `gorm:"type:text"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Version      int `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name
func (ImportJobModel) TableName() string {
	return "import_jobs"
}

// FromDomain populates the model from a domain job.
func (m *ImportJobModel) FromDomain(job *importing.ImportJob) error {
	mapping, err := json.Marshal(job.Mapping)
	if err != nil {
		return err
	}
	recent, err := json.Marshal(job.RecentErrors)
	if err != nil {
		return err
	}
	m.ID = job.ID
	m.Platform = string(job.Platform)
	m.PaidStatus = job.PaidStatus
	m.Mapping = mapping
	m.Filename = job.Filename
	m.StageID = job.StageID
	m.TotalRows = job.TotalRows
	m.Processed = job.Counters.Processed
	m.Created = job.Counters.Created
	m.Existing = job.Counters.Existing
	m.Skipped = job.Counters.Skipped
	m.Errors = job.Counters.Errors
	m.LastOffset = job.LastOffset
	m.Status = string(job.Status)
	m.RecentErrors = recent
	m.FailureCause = job.FailureCause
	m.StartedAt = job.StartedAt
	m.FinishedAt = job.FinishedAt
	m.Version = job.Version
	m.CreatedAt = job.CreatedAt
	m.UpdatedAt = job.UpdatedAt
	return nil
}

// ToDomain rebuilds the domain job from the model.
func (m *ImportJobModel) ToDomain() (*importing.ImportJob, error) {
	var mapping csvimport.ColumnMapping
	if len(m.Mapping) > 0 {
		if err := json.Unmarshal(m.Mapping, &mapping); err != nil {
			return nil, err
		}
	}
	var recent []string
	if len(m.RecentErrors) > 0 {
		if err := json.Unmarshal(m.RecentErrors, &recent); err != nil {
			return nil, err
		}
	}
	job := &importing.ImportJob{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Platform:   importing.Platform(m.Platform),
		PaidStatus: m.PaidStatus,
		Mapping:    mapping,
		Filename:   m.Filename,
		StageID:    m.StageID,
		TotalRows:  m.TotalRows,
		Counters: importing.Counters{
			Processed: m.Processed,
			Created:   m.Created,
			Existing:  m.Existing,
			Skipped:   m.Skipped,
			Errors:    m.Errors,
		},
		LastOffset:   m.LastOffset,
		Status:       importing.JobStatus(m.Status),
		RecentErrors: recent,
		FailureCause: m.FailureCause,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
	}
	return job, nil
}

// MappingTemplateModel is the persisted form of importing.MappingTemplate.
type MappingTemplateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:128;not null;uniqueIndex"`
	Icon      string    `gorm:"size:64"`
	Mapping   []byte    `gorm:"type:jsonb;not null"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (MappingTemplateModel) TableName() string {
	return "mapping_templates"
}

// FromDomain populates the model from a domain template.
func (m *MappingTemplateModel) FromDomain(t *importing.MappingTemplate) error {
	mapping, err := json.Marshal(t.Mapping)
	if err != nil {
		return err
	}
	m.ID = t.ID
	m.Name = t.Name
	m.Icon = t.Icon
	m.Mapping = mapping
	m.Version = t.Version
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	return nil
}

// ToDomain rebuilds the domain template from the model.
func (m *MappingTemplateModel) ToDomain() (*importing.MappingTemplate, error) {
	var mapping csvimport.ColumnMapping
	if err := json.Unmarshal(m.Mapping, &mapping); err != nil {
		return nil, err
	}
	return &importing.MappingTemplate{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:    m.Name,
		Icon:    m.Icon,
		Mapping: mapping,
	}, nil
}
