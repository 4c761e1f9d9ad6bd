package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandinglab/backend/internal/domain/shipping"
)

// OrderPayload is the wire form of a workstation order. The client sends
// orders back from its table for merge and label operations, so the
// payload round-trips the full order state.
type OrderPayload struct {
	TransactionID  string             `json:"transactionId" binding:"required"`
	Products       []string           `json:"products"`
	Recipient      shipping.Recipient `json:"recipient"`
	Total          decimal.Decimal    `json:"total"`
	SaleDate       time.Time          `json:"saleDate"`
	ServiceCode    string             `json:"serviceCode"`
	ShipmentsTotal int                `json:"shipmentsTotal"`
	ShipmentsDone  int                `json:"shipmentsDone"`
	LabelStatus    string             `json:"labelStatus"`
	LabelCodes     []string           `json:"labelCodes"`
	MergedInto     string             `json:"mergedInto,omitempty"`
}

// ToDomain converts the payload to a domain order.
func (p OrderPayload) ToDomain() *shipping.Order {
	total := p.ShipmentsTotal
	if total < 1 {
		total = 1
	}
	status := shipping.LabelStatus(p.LabelStatus)
	if status == "" {
		status = shipping.LabelPending
	}
	return &shipping.Order{
		TransactionID:  p.TransactionID,
		Products:       p.Products,
		Recipient:      p.Recipient,
		Total:          p.Total,
		SaleDate:       p.SaleDate,
		ServiceCode:    p.ServiceCode,
		ShipmentsTotal: total,
		ShipmentsDone:  p.ShipmentsDone,
		LabelStatus:    status,
		LabelCodes:     p.LabelCodes,
		MergedInto:     p.MergedInto,
	}
}

// ToDomainOrders converts a payload slice.
func ToDomainOrders(payloads []OrderPayload) []*shipping.Order {
	orders := make([]*shipping.Order, len(payloads))
	for i, p := range payloads {
		orders[i] = p.ToDomain()
	}
	return orders
}

// BuildTableRequest carries the non-file fields of a table upload.
type BuildTableRequest struct {
	Platform   string `form:"platform" binding:"omitempty,oneof=hotmart custom"`
	PaidStatus string `form:"paid_status"`
	Mapping    string `form:"mapping"`
}

// MergeRequest combines orders into one shipment.
type MergeRequest struct {
	Orders      []OrderPayload `json:"orders" binding:"required,min=2,dive"`
	LabelChoice string         `json:"labelChoice" binding:"omitempty,oneof=inherit discard"`
}

// GenerateLabelsRequest runs one label batch.
type GenerateLabelsRequest struct {
	Orders        []OrderPayload `json:"orders" binding:"required,min=1,dive"`
	ServiceCode   string         `json:"serviceCode" binding:"required"`
	Confirmation  string         `json:"confirmation"`
	SendWhatsApp  bool           `json:"sendWhatsapp"`
	NotifyClients bool           `json:"notifyClients"`
}

// LabelsPDFRequest fetches the consolidated PDF for a set of codes.
type LabelsPDFRequest struct {
	Codes []string `json:"codes" binding:"required,min=1"`
}

// ExportRequest renders the tracking CSV for the given orders.
type ExportRequest struct {
	Orders []OrderPayload `json:"orders" binding:"required,min=1,dive"`
}
