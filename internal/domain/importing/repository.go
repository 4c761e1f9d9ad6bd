package importing

import (
	"context"

	"github.com/google/uuid"
)

// JobRepository persists import jobs.
type JobRepository interface {
	Save(ctx context.Context, job *ImportJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*ImportJob, error)
	FindAll(ctx context.Context, limit, offset int) ([]*ImportJob, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TemplateRepository persists mapping templates.
type TemplateRepository interface {
	Save(ctx context.Context, template *MappingTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*MappingTemplate, error)
	FindByName(ctx context.Context, name string) (*MappingTemplate, error)
	FindAll(ctx context.Context) ([]*MappingTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
