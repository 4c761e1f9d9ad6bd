package shipping

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandinglab/backend/internal/domain/shared"
)

// LabelStatus is the label generation state of an order.
type LabelStatus string

const (
	LabelPending   LabelStatus = "pending"
	LabelPartial   LabelStatus = "partial"
	LabelGenerated LabelStatus = "generated"
	LabelError     LabelStatus = "error"
)

// Recipient is the shipping destination of an order.
type Recipient struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	TaxID        string `json:"taxId"`
	Zip          string `json:"zip"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Order is a physical sale in the label workstation. One order ships
// ShipmentsTotal packages; each generated label advances ShipmentsDone.
type Order struct {
	TransactionID  string          `json:"transactionId"`
	Products       []string        `json:"products"`
	Recipient      Recipient       `json:"recipient"`
	Total          decimal.Decimal `json:"total"`
	SaleDate       time.Time       `json:"saleDate"`
	ServiceCode    string          `json:"serviceCode"`
	ShipmentsTotal int             `json:"shipmentsTotal"`
	ShipmentsDone  int             `json:"shipmentsDone"`
	LabelStatus    LabelStatus     `json:"labelStatus"`
	LabelCodes     []string        `json:"labelCodes"`
	MergedInto     string          `json:"mergedInto,omitempty"`
}

// NewOrder creates a pending order for a transaction.
func NewOrder(transactionID string, recipient Recipient, products []string, total decimal.Decimal, saleDate time.Time) *Order {
	return &Order{
		TransactionID:  transactionID,
		Products:       products,
		Recipient:      recipient,
		Total:          total,
		SaleDate:       saleDate,
		ShipmentsTotal: 1,
		LabelStatus:    LabelPending,
	}
}

// ApplyLabel records one generated label code and recomputes the status.
func (o *Order) ApplyLabel(code string) error {
	if o.ShipmentsDone >= o.ShipmentsTotal {
		return shared.NewDomainError("INVALID_STATE", "All shipments already have labels")
	}
	o.LabelCodes = append(o.LabelCodes, code)
	o.ShipmentsDone++
	o.recomputeStatus()
	return nil
}

// MarkLabelError flags a failed generation attempt without touching the
// shipment counters.
func (o *Order) MarkLabelError() {
	o.LabelStatus = LabelError
}

// recomputeStatus derives LabelStatus from the shipment counters.
func (o *Order) recomputeStatus() {
	switch {
	case o.ShipmentsDone >= o.ShipmentsTotal && len(o.LabelCodes) > 0:
		o.ShipmentsDone = o.ShipmentsTotal
		o.LabelStatus = LabelGenerated
	case o.ShipmentsDone > 0:
		o.LabelStatus = LabelPartial
	default:
		o.LabelStatus = LabelPending
	}
}

// RemainingShipments returns how many labels are still needed.
func (o *Order) RemainingShipments() int {
	if o.ShipmentsTotal < o.ShipmentsDone {
		return 0
	}
	return o.ShipmentsTotal - o.ShipmentsDone
}

// Merged reports whether the order is a member of an active merge.
func (o *Order) Merged() bool {
	return o.MergedInto != ""
}

// Snapshot captures the order state for later restoration on unmerge.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		TransactionID:  o.TransactionID,
		Products:       append([]string(nil), o.Products...),
		Recipient:      o.Recipient,
		Total:          o.Total,
		SaleDate:       o.SaleDate,
		ServiceCode:    o.ServiceCode,
		ShipmentsTotal: o.ShipmentsTotal,
		ShipmentsDone:  o.ShipmentsDone,
		LabelStatus:    o.LabelStatus,
		LabelCodes:     append([]string(nil), o.LabelCodes...),
	}
}

// OrderSnapshot is the pre-merge state of a member order.
type OrderSnapshot struct {
	TransactionID  string          `json:"transactionId"`
	Products       []string        `json:"products"`
	Recipient      Recipient       `json:"recipient"`
	Total          decimal.Decimal `json:"total"`
	SaleDate       time.Time       `json:"saleDate"`
	ServiceCode    string          `json:"serviceCode"`
	ShipmentsTotal int             `json:"shipmentsTotal"`
	ShipmentsDone  int             `json:"shipmentsDone"`
	LabelStatus    LabelStatus     `json:"labelStatus"`
	LabelCodes     []string        `json:"labelCodes"`
}

// Restore rebuilds an order from its snapshot.
func (s OrderSnapshot) Restore() *Order {
	return &Order{
		TransactionID:  s.TransactionID,
		Products:       append([]string(nil), s.Products...),
		Recipient:      s.Recipient,
		Total:          s.Total,
		SaleDate:       s.SaleDate,
		ServiceCode:    s.ServiceCode,
		ShipmentsTotal: s.ShipmentsTotal,
		ShipmentsDone:  s.ShipmentsDone,
		LabelStatus:    s.LabelStatus,
		LabelCodes:     append([]string(nil), s.LabelCodes...),
	}
}

// MergeKey is the normalized identity two orders must share to be merged
// into one shipment.
type MergeKey struct {
	Email  string
	Name   string
	Street string
	Number string
	Zip    string
}

// MergeKeyOf computes the merge key for an order.
func MergeKeyOf(o *Order) MergeKey {
	return MergeKey{
		Email:  normalizeKeyPart(o.Recipient.Email),
		Name:   normalizeKeyPart(o.Recipient.Name),
		Street: normalizeKeyPart(o.Recipient.Street),
		Number: normalizeKeyPart(o.Recipient.Number),
		Zip:    digits(o.Recipient.Zip),
	}
}

// Diff names the key fields on which two orders disagree, in Portuguese
// for direct display.
func (k MergeKey) Diff(other MergeKey) []string {
	var fields []string
	if k.Email != other.Email {
		fields = append(fields, "Emails diferentes")
	}
	if k.Name != other.Name {
		fields = append(fields, "Nomes diferentes")
	}
	if k.Street != other.Street || k.Number != other.Number || k.Zip != other.Zip {
		fields = append(fields, "Endereços diferentes")
	}
	return fields
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
