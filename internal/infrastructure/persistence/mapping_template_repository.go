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

// MappingTemplateRepository is the gorm implementation of
// importing.TemplateRepository.
type MappingTemplateRepository struct {
	db *gorm.DB
}

var _ importing.TemplateRepository = (*MappingTemplateRepository)(nil)

// NewMappingTemplateRepository creates the repository.
func NewMappingTemplateRepository(db *gorm.DB) *MappingTemplateRepository {
	return &MappingTemplateRepository{db: db}
}

// Save inserts or updates a template.
func (r *MappingTemplateRepository) Save(ctx context.Context, template *importing.MappingTemplate) error {
	var model models.MappingTemplateModel
	if err := model.FromDomain(template); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Save(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByID loads a template by id.
func (r *MappingTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*importing.MappingTemplate, error) {
	var model models.MappingTemplateModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain()
}

// FindByName loads a template by its unique name.
func (r *MappingTemplateRepository) FindByName(ctx context.Context, name string) (*importing.MappingTemplate, error) {
	var model models.MappingTemplateModel
	err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns every template ordered by name.
func (r *MappingTemplateRepository) FindAll(ctx context.Context) ([]*importing.MappingTemplate, error) {
	var rows []models.MappingTemplateModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	templates := make([]*importing.MappingTemplate, 0, len(rows))
	for i := range rows {
		t, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// Delete removes a template.
func (r *MappingTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MappingTemplateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
