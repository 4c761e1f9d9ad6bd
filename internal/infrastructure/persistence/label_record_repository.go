package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/domain/shipping"
	"github.com/brandinglab/backend/internal/infrastructure/persistence/models"
)

// LabelRecordRepository is the gorm implementation of shipping.LabelRepository.
type LabelRecordRepository struct {
	db *gorm.DB
}

var _ shipping.LabelRepository = (*LabelRecordRepository)(nil)

// NewLabelRecordRepository creates the repository.
func NewLabelRecordRepository(db *gorm.DB) *LabelRecordRepository {
	return &LabelRecordRepository{db: db}
}

// Save appends a label record.
func (r *LabelRecordRepository) Save(ctx context.Context, record *shipping.LabelRecord) error {
	var model models.LabelRecordModel
	if err := model.FromDomain(record); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByTransactionIDs returns the records for the given transactions,
// oldest first so replay order matches generation order.
func (r *LabelRecordRepository) FindByTransactionIDs(ctx context.Context, transactionIDs []string) ([]*shipping.LabelRecord, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}
	var rows []models.LabelRecordModel
	err := r.db.WithContext(ctx).
		Where("transaction_id IN ?", transactionIDs).
		Order("generated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainLabels(rows)
}

// FindAll returns every label record, oldest first.
func (r *LabelRecordRepository) FindAll(ctx context.Context) ([]*shipping.LabelRecord, error) {
	var rows []models.LabelRecordModel
	if err := r.db.WithContext(ctx).Order("generated_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainLabels(rows)
}

// Delete removes a label record.
func (r *LabelRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LabelRecordModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainLabels(rows []models.LabelRecordModel) ([]*shipping.LabelRecord, error) {
	records := make([]*shipping.LabelRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
