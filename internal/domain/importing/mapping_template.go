package importing

import (
	"strings"

	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// MappingTemplate is a named, reusable column mapping shared by all users.
type MappingTemplate struct {
	shared.BaseAggregateRoot
	Name    string
	Icon    string
	Mapping csvimport.ColumnMapping
}

// NewMappingTemplate creates a template. Name is required and the mapping
// must bind at least one field.
func NewMappingTemplate(name, icon string, mapping csvimport.ColumnMapping) (*MappingTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Template name is required")
	}
	if len(mapping) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Template mapping is empty")
	}
	return &MappingTemplate{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Icon:              icon,
		Mapping:           mapping,
	}, nil
}

// Update replaces the template contents.
func (t *MappingTemplate) Update(name, icon string, mapping csvimport.ColumnMapping) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Template name is required")
	}
	if len(mapping) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Template mapping is empty")
	}
	t.Name = name
	t.Icon = icon
	t.Mapping = mapping
	t.Touch()
	return nil
}

// CompatibleWith reports whether every header the template references is
// present in the given file headers.
func (t *MappingTemplate) CompatibleWith(headers []string) bool {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, h := range t.Mapping {
		if h != "" && !present[h] {
			return false
		}
	}
	return true
}
