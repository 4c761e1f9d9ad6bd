// Package persistence implements the gorm-backed repositories.
package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/infrastructure/persistence/models"
)

// ImportJobRepository is the gorm implementation of importing.JobRepository.
type ImportJobRepository struct {
	db *gorm.DB
}

var _ importing.JobRepository = (*ImportJobRepository)(nil)

// NewImportJobRepository creates the repository.
func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Save inserts or updates a job.
func (r *ImportJobRepository) Save(ctx context.Context, job *importing.ImportJob) error {
	var model models.ImportJobModel
	if err := model.FromDomain(job); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID loads a job by id.
func (r *ImportJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*importing.ImportJob, error) {
	var model models.ImportJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns jobs newest first, with the total count.
func (r *ImportJobRepository) FindAll(ctx context.Context, limit, offset int) ([]*importing.ImportJob, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ImportJobModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ImportJobModel
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	jobs := make([]*importing.ImportJob, 0, len(rows))
	for i := range rows {
		job, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, nil
}

// Delete removes a job document. The background loop treats a missing
// document as a cancellation signal.
func (r *ImportJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ImportJobModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
