package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/domain/shipping"
	"github.com/brandinglab/backend/internal/infrastructure/persistence/models"
)

// MergedOrderRepository is the gorm implementation of shipping.MergeRepository.
type MergedOrderRepository struct {
	db *gorm.DB
}

var _ shipping.MergeRepository = (*MergedOrderRepository)(nil)

// NewMergedOrderRepository creates the repository.
func NewMergedOrderRepository(db *gorm.DB) *MergedOrderRepository {
	return &MergedOrderRepository{db: db}
}

// Save inserts or updates a merged order.
func (r *MergedOrderRepository) Save(ctx context.Context, merge *shipping.MergedOrder) error {
	var model models.MergedOrderModel
	if err := model.FromDomain(merge); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID loads a merged order.
func (r *MergedOrderRepository) FindByID(ctx context.Context, id string) (*shipping.MergedOrder, error) {
	var model models.MergedOrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns every saved merge.
func (r *MergedOrderRepository) FindAll(ctx context.Context) ([]*shipping.MergedOrder, error) {
	var rows []models.MergedOrderModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	merges := make([]*shipping.MergedOrder, 0, len(rows))
	for i := range rows {
		m, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		merges = append(merges, m)
	}
	return merges, nil
}

// Delete removes a saved merge.
func (r *MergedOrderRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.MergedOrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
