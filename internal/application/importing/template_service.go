package importing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// TemplateService manages the shared mapping templates.
type TemplateService struct {
	templates importing.TemplateRepository
	logger    *zap.Logger
}

// NewTemplateService creates the template service.
func NewTemplateService(templates importing.TemplateRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{templates: templates, logger: logger.Named("templates")}
}

// Create stores a new template. Names are unique.
func (s *TemplateService) Create(ctx context.Context, name, icon string, mapping csvimport.ColumnMapping) (*importing.MappingTemplate, error) {
	if existing, err := s.templates.FindByName(ctx, name); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	}
	template, err := importing.NewMappingTemplate(name, icon, mapping)
	if err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// Update rewrites an existing template.
func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, name, icon string, mapping csvimport.ColumnMapping) (*importing.MappingTemplate, error) {
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := template.Update(name, icon, mapping); err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// Get loads one template.
func (s *TemplateService) Get(ctx context.Context, id uuid.UUID) (*importing.MappingTemplate, error) {
	return s.templates.FindByID(ctx, id)
}

// List returns every template.
func (s *TemplateService) List(ctx context.Context) ([]*importing.MappingTemplate, error) {
	return s.templates.FindAll(ctx)
}

// Delete removes a template.
func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

// CompatibleWith returns the templates whose mapped headers all exist in
// the given file headers.
func (s *TemplateService) CompatibleWith(ctx context.Context, headers []string) ([]*importing.MappingTemplate, error) {
	all, err := s.templates.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	compatible := make([]*importing.MappingTemplate, 0, len(all))
	for _, t := range all {
		if t.CompatibleWith(headers) {
			compatible = append(compatible, t)
		}
	}
	return compatible, nil
}
