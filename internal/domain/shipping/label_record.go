package shipping

import (
	"context"
	"time"

	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LabelRecord is the append-only history of one generated label. The
// workstation rebuilds order status from these records on every reimport.
type LabelRecord struct {
	shared.BaseEntity
	TransactionID string
	LabelCode     string
	Recipient     Recipient
	ServiceCode   string
	ShipmentIndex int
	ShipmentTotal int
	MergeID       string
	MergeMembers  []string
	GeneratedAt   time.Time
}

// NewLabelRecord captures a successful label generation.
func NewLabelRecord(order *Order, code, serviceCode string, mergeID string, mergeMembers []string) *LabelRecord {
	return &LabelRecord{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: order.TransactionID,
		LabelCode:     code,
		Recipient:     order.Recipient,
		ServiceCode:   serviceCode,
		ShipmentIndex: order.ShipmentsDone,
		ShipmentTotal: order.ShipmentsTotal,
		MergeID:       mergeID,
		MergeMembers:  append([]string(nil), mergeMembers...),
		GeneratedAt:   time.Now(),
	}
}

// LabelRepository persists label records.
type LabelRepository interface {
	Save(ctx context.Context, record *LabelRecord) error
	FindByTransactionIDs(ctx context.Context, transactionIDs []string) ([]*LabelRecord, error)
	FindAll(ctx context.Context) ([]*LabelRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MergeRepository persists merged orders.
type MergeRepository interface {
	Save(ctx context.Context, merge *MergedOrder) error
	FindByID(ctx context.Context, id string) (*MergedOrder, error)
	FindAll(ctx context.Context) ([]*MergedOrder, error)
	Delete(ctx context.Context, id string) error
}
