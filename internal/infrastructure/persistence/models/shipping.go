package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/domain/shipping"
)

// LabelRecordModel is the persisted form of shipping.LabelRecord.
type LabelRecordModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID string    `gorm:"size:128;not null;index"`
	LabelCode     string    `gorm:"size:128;not null"`
	Recipient     []byte    `gorm:"type:jsonb"`
	ServiceCode   string    `gorm:"size:32"`
	ShipmentIndex int       `gorm:"not null"`
	ShipmentTotal int       `gorm:"not null"`
	MergeID       string    `gorm:"size:128;index"`
	MergeMembers  []byte    `gorm:"type:jsonb"`
	GeneratedAt   time.Time `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name
func (LabelRecordModel) TableName() string {
	return "label_records"
}

// FromDomain populates the model from a domain label record.
func (m *LabelRecordModel) FromDomain(r *shipping.LabelRecord) error {
	recipient, err := json.Marshal(r.Recipient)
	if err != nil {
		return err
	}
	members, err := json.Marshal(r.MergeMembers)
	if err != nil {
		return err
	}
	m.ID = r.ID
	m.TransactionID = r.TransactionID
	m.LabelCode = r.LabelCode
	m.Recipient = recipient
	m.ServiceCode = r.ServiceCode
	m.ShipmentIndex = r.ShipmentIndex
	m.ShipmentTotal = r.ShipmentTotal
	m.MergeID = r.MergeID
	m.MergeMembers = members
	m.GeneratedAt = r.GeneratedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	return nil
}

// ToDomain rebuilds the domain label record from the model.
func (m *LabelRecordModel) ToDomain() (*shipping.LabelRecord, error) {
	var recipient shipping.Recipient
	if len(m.Recipient) > 0 {
		if err := json.Unmarshal(m.Recipient, &recipient); err != nil {
			return nil, err
		}
	}
	var members []string
	if len(m.MergeMembers) > 0 {
		if err := json.Unmarshal(m.MergeMembers, &members); err != nil {
			return nil, err
		}
	}
	return &shipping.LabelRecord{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TransactionID: m.TransactionID,
		LabelCode:     m.LabelCode,
		Recipient:     recipient,
		ServiceCode:   m.ServiceCode,
		ShipmentIndex: m.ShipmentIndex,
		ShipmentTotal: m.ShipmentTotal,
		MergeID:       m.MergeID,
		MergeMembers:  members,
		GeneratedAt:   m.GeneratedAt,
	}, nil
}

// MergedOrderModel is the persisted form of shipping.MergedOrder.
type MergedOrderModel struct {
	ID          string `gorm:"size:128;primaryKey"`
	Members     []byte `gorm:"type:jsonb;not null"`
	Snapshots   []byte `gorm:"type:jsonb"`
	Result      []byte `gorm:"type:jsonb"`
	LabelChoice string `gorm:"size:16"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name
func (MergedOrderModel) TableName() string {
	return "merged_orders"
}

// FromDomain populates the model from a domain merged order.
func (m *MergedOrderModel) FromDomain(merge *shipping.MergedOrder) error {
	members, err := json.Marshal(merge.Members)
	if err != nil {
		return err
	}
	snapshots, err := json.Marshal(merge.Snapshots)
	if err != nil {
		return err
	}
	result, err := json.Marshal(merge.Result)
	if err != nil {
		return err
	}
	m.ID = merge.ID
	m.Members = members
	m.Snapshots = snapshots
	m.Result = result
	m.LabelChoice = string(merge.LabelChoice)
	m.CreatedAt = merge.CreatedAt
	return nil
}

// ToDomain rebuilds the domain merged order from the model.
func (m *MergedOrderModel) ToDomain() (*shipping.MergedOrder, error) {
	merge := &shipping.MergedOrder{
		ID:          m.ID,
		LabelChoice: shipping.LabelChoice(m.LabelChoice),
		CreatedAt:   m.CreatedAt,
	}
	if err := json.Unmarshal(m.Members, &merge.Members); err != nil {
		return nil, err
	}
	if len(m.Snapshots) > 0 {
		if err := json.Unmarshal(m.Snapshots, &merge.Snapshots); err != nil {
			return nil, err
		}
	}
	if len(m.Result) > 0 {
		if err := json.Unmarshal(m.Result, &merge.Result); err != nil {
			return nil, err
		}
	}
	return merge, nil
}
