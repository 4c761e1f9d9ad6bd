// Package shipping implements the label workstation: the order table
// built from a sales export, order merging, label generation and the
// post-batch notifications.
package shipping

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/domain/shipping"
	"github.com/brandinglab/backend/internal/infrastructure/config"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
	"github.com/brandinglab/backend/internal/infrastructure/labeling"
	"github.com/brandinglab/backend/internal/infrastructure/notify"
)

// Confirmation phrases the operator must type for actions that touch
// production systems or real customers.
const (
	ConfirmProductionLabels = "GERAR ETIQUETAS REAIS"
	ConfirmNotifyCustomers  = "NOTIFICAR CLIENTES REAIS"
)

// LabelClient generates labels at the provider. Implemented by
// labeling.Client.
type LabelClient interface {
	Generate(ctx context.Context, req labeling.LabelRequest) (*labeling.LabelResponse, error)
	FetchPDF(ctx context.Context, codes []string) ([]byte, error)
}

// WebhookNotifier posts batch results to the automation flows.
type WebhookNotifier interface {
	NotifyAdmin(ctx context.Context, payload notify.AdminPayload) error
	NotifyClient(ctx context.Context, payload notify.ClientPayload) error
}

// MessageSender delivers per-customer WhatsApp messages.
type MessageSender interface {
	SendBatch(ctx context.Context, msgs []notify.Message) int
}

// WorkstationService drives the shipping-label workstation.
type WorkstationService struct {
	labels    shipping.LabelRepository
	merges    shipping.MergeRepository
	provider  LabelClient
	webhooks  WebhookNotifier
	whatsapp  MessageSender
	labelCfg  config.LabelingConfig
	notifyCfg config.NotifyConfig
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

// NewWorkstationService creates the workstation service.
func NewWorkstationService(
	labels shipping.LabelRepository,
	merges shipping.MergeRepository,
	provider LabelClient,
	webhooks WebhookNotifier,
	whatsapp MessageSender,
	labelCfg config.LabelingConfig,
	notifyCfg config.NotifyConfig,
	logger *zap.Logger,
) *WorkstationService {
	return &WorkstationService{
		labels:    labels,
		merges:    merges,
		provider:  provider,
		webhooks:  webhooks,
		whatsapp:  whatsapp,
		labelCfg:  labelCfg,
		notifyCfg: notifyCfg,
		sleep:     sleepCtx,
		logger:    logger.Named("workstation"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// TableOptions parameterizes an order-table build.
type TableOptions struct {
	Platform   importing.Platform
	PaidStatus string
	Mapping    csvimport.ColumnMapping
}

// OrderTable is the workstation view of one uploaded sales export.
type OrderTable struct {
	Orders  []*shipping.Order       `json:"orders"`
	Merges  []*shipping.MergedOrder `json:"merges"`
	Skipped int                     `json:"skipped"`
	Errors  []csvimport.RowError    `json:"errors"`
}

// BuildOrderTable parses a sales export into physical-product orders,
// replays the stored label history onto them and re-applies every saved
// merge whose members are all present in the file.
func (s *WorkstationService) BuildOrderTable(ctx context.Context, file io.Reader, opts TableOptions) (*OrderTable, error) {
	parsed, err := csvimport.Parse(file)
	if err != nil {
		return nil, err
	}
	mapping := opts.Mapping
	if len(mapping) == 0 {
		mapping = csvimport.AutoDetect(parsed.Headers)
	}
	paidStatus := opts.PaidStatus
	if paidStatus == "" {
		paidStatus = opts.Platform.PaidStatus()
	}

	table := &OrderTable{}
	byID := make(map[string]*shipping.Order)
	for _, row := range parsed.Rows {
		if paidStatus != "" && mapping.Value(row, csvimport.FieldStatus) != paidStatus {
			table.Skipped++
			continue
		}
		rec, err := importing.BuildRecord(row, mapping)
		if err != nil {
			table.Errors = append(table.Errors, csvimport.RowError{Row: row.Line, Message: err.Error()})
			continue
		}
		if !rec.Physical() {
			table.Skipped++
			continue
		}
		if existing, ok := byID[rec.TransactionID]; ok {
			// Same transaction repeated: one shipment, combined contents.
			existing.Products = append(existing.Products, rec.Product)
			continue
		}
		order := orderFromRecord(rec)
		byID[order.TransactionID] = order
		table.Orders = append(table.Orders, order)
	}

	if err := s.replayLabels(ctx, table, byID); err != nil {
		return nil, err
	}
	if err := s.reapplyMerges(ctx, table, byID); err != nil {
		return nil, err
	}
	return table, nil
}

func orderFromRecord(rec importing.NormalizedRecord) *shipping.Order {
	recipient := shipping.Recipient{
		Name:         rec.Name,
		Email:        rec.Email,
		Phone:        rec.Phone,
		TaxID:        rec.TaxID,
		Zip:          rec.Zip,
		Street:       rec.Street,
		Number:       rec.Number,
		Complement:   rec.Complement,
		Neighborhood: rec.Neighborhood,
		City:         rec.City,
		State:        rec.State,
	}
	return shipping.NewOrder(rec.TransactionID, recipient, []string{rec.Product}, rec.Total, rec.SaleDate)
}

// replayLabels applies the stored label history onto the fresh orders.
// Records for merge results are held back until the merge itself is
// re-applied.
func (s *WorkstationService) replayLabels(ctx context.Context, table *OrderTable, byID map[string]*shipping.Order) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	records, err := s.labels.FindByTransactionIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load label history: %w", err)
	}
	for _, record := range records {
		order, ok := byID[record.TransactionID]
		if !ok {
			continue
		}
		if record.ShipmentTotal > order.ShipmentsTotal {
			order.ShipmentsTotal = record.ShipmentTotal
		}
		if err := order.ApplyLabel(record.LabelCode); err != nil {
			s.logger.Warn("stale label record ignored",
				zap.String("transaction_id", record.TransactionID),
				zap.String("code", record.LabelCode))
		}
	}
	return nil
}

// reapplyMerges restores every saved merge whose members all appear in
// the uploaded file, then replays labels generated for the merge result.
func (s *WorkstationService) reapplyMerges(ctx context.Context, table *OrderTable, byID map[string]*shipping.Order) error {
	saved, err := s.merges.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load merges: %w", err)
	}
	present := make(map[string]bool, len(byID))
	for id := range byID {
		present[id] = true
	}

	var mergeIDs []string
	for _, m := range saved {
		if !m.Covers(present) {
			continue
		}
		members := make([]*shipping.Order, 0, len(m.Members))
		ok := true
		for _, id := range m.Members {
			order := byID[id]
			if order.Merged() {
				ok = false
				break
			}
			members = append(members, order)
		}
		if !ok {
			continue
		}
		merged, err := shipping.Merge(members, m.LabelChoice)
		if err != nil {
			s.logger.Warn("saved merge no longer applies",
				zap.String("merge_id", m.ID), zap.Error(err))
			continue
		}
		table.Merges = append(table.Merges, merged)
		mergeIDs = append(mergeIDs, merged.ID)
	}

	if len(mergeIDs) == 0 {
		return nil
	}
	records, err := s.labels.FindByTransactionIDs(ctx, mergeIDs)
	if err != nil {
		return fmt.Errorf("load merge label history: %w", err)
	}
	byMerge := make(map[string]*shipping.MergedOrder, len(table.Merges))
	for _, m := range table.Merges {
		byMerge[m.ID] = m
	}
	for _, record := range records {
		m, ok := byMerge[record.TransactionID]
		if !ok {
			continue
		}
		if record.ShipmentTotal > m.Result.ShipmentsTotal {
			m.Result.ShipmentsTotal = record.ShipmentTotal
		}
		if err := m.Result.ApplyLabel(record.LabelCode); err != nil {
			s.logger.Warn("stale merge label record ignored",
				zap.String("merge_id", record.TransactionID))
		}
	}
	return nil
}

// Merge combines the given orders into one shipment and persists the
// merge so a reimport re-applies it.
func (s *WorkstationService) Merge(ctx context.Context, orders []*shipping.Order, choice shipping.LabelChoice) (*shipping.MergedOrder, error) {
	merged, err := shipping.Merge(orders, choice)
	if err != nil {
		return nil, err
	}
	if err := s.merges.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save merge: %w", err)
	}
	s.logger.Info("orders merged",
		zap.String("merge_id", merged.ID),
		zap.Strings("members", merged.Members))
	return merged, nil
}

// Unmerge deletes a saved merge and returns the member orders restored
// from their snapshots.
func (s *WorkstationService) Unmerge(ctx context.Context, mergeID string) ([]*shipping.Order, error) {
	merged, err := s.merges.FindByID(ctx, mergeID)
	if err != nil {
		return nil, err
	}
	restored := merged.Unmerge()
	if err := s.merges.Delete(ctx, mergeID); err != nil {
		return nil, fmt.Errorf("delete merge: %w", err)
	}
	s.logger.Info("merge undone", zap.String("merge_id", mergeID))
	return restored, nil
}

// GenerateOptions parameterizes one label batch.
type GenerateOptions struct {
	ServiceCode   string
	Confirmation  string
	SendWhatsApp  bool
	NotifyClients bool
}

// LabelResult is the outcome for one order of a batch.
type LabelResult struct {
	TransactionID string               `json:"transactionId"`
	Status        shipping.LabelStatus `json:"status"`
	LabelCodes    []string             `json:"labelCodes"`
	NewCodes      []string             `json:"newCodes"`
	Error         string               `json:"error,omitempty"`
}

// BatchResult summarizes one label batch.
type BatchResult struct {
	Results      []LabelResult `json:"results"`
	Generated    int           `json:"generated"`
	Failed       int           `json:"failed"`
	WhatsAppSent int           `json:"whatsappSent"`
}

// GenerateLabels runs one label batch over the selected orders. Requests
// go out sequentially with a fixed delay; a per-order failure marks that
// order and moves on. Cancellation is checked before each request.
// Production runs and real-customer notification are gated behind typed
// confirmation phrases.
func (s *WorkstationService) GenerateLabels(ctx context.Context, orders []*shipping.Order, opts GenerateOptions) (*BatchResult, error) {
	if opts.ServiceCode == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "serviceCode is required")
	}
	if !s.labelCfg.Sandbox && opts.Confirmation != ConfirmProductionLabels {
		return nil, shared.NewDomainError("CONFIRMATION_REQUIRED",
			"Production labels require the confirmation phrase "+ConfirmProductionLabels)
	}
	if opts.SendWhatsApp && s.notifyCfg.WhatsAppTestPhone == "" && opts.Confirmation != ConfirmNotifyCustomers && opts.Confirmation != ConfirmProductionLabels {
		return nil, shared.NewDomainError("CONFIRMATION_REQUIRED",
			"Messaging real customers requires the confirmation phrase "+ConfirmNotifyCustomers)
	}

	batch := &BatchResult{}
	first := true
	for _, order := range orders {
		result := LabelResult{
			TransactionID: order.TransactionID,
			LabelCodes:    append([]string(nil), order.LabelCodes...),
			Status:        order.LabelStatus,
		}
		for order.RemainingShipments() > 0 {
			if !first {
				if err := s.sleep(ctx, s.labelCfg.RequestDelay); err != nil {
					return batch, err
				}
			}
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			first = false

			code, err := s.generateOne(ctx, order, opts.ServiceCode)
			if err != nil {
				order.MarkLabelError()
				result.Error = err.Error()
				batch.Failed++
				s.logger.Warn("label generation failed",
					zap.String("transaction_id", order.TransactionID),
					zap.Error(err))
				break
			}
			result.NewCodes = append(result.NewCodes, code)
			batch.Generated++
		}
		result.Status = order.LabelStatus
		result.LabelCodes = append([]string(nil), order.LabelCodes...)
		batch.Results = append(batch.Results, result)
	}

	s.notifyBatch(ctx, orders, batch, opts)
	return batch, nil
}

// generateOne requests a single label and persists its record.
func (s *WorkstationService) generateOne(ctx context.Context, order *shipping.Order, serviceCode string) (string, error) {
	resp, err := s.provider.Generate(ctx, labeling.LabelRequest{
		Recipient:   order.Recipient,
		ServiceCode: serviceCode,
		Reference:   order.TransactionID,
		Contents:    order.Products,
		Sandbox:     s.labelCfg.Sandbox,
	})
	if err != nil {
		return "", err
	}
	if err := order.ApplyLabel(resp.Code); err != nil {
		return "", err
	}

	mergeID, members := s.mergeMetadata(ctx, order.TransactionID)
	record := shipping.NewLabelRecord(order, resp.Code, serviceCode, mergeID, members)
	if err := s.labels.Save(ctx, record); err != nil {
		// The label exists at the provider; losing its record would
		// desync the table on the next reimport.
		return "", fmt.Errorf("label %s generated but not recorded: %w", resp.Code, err)
	}
	return resp.Code, nil
}

// mergeMetadata resolves merge membership for label records generated
// against a merge result.
func (s *WorkstationService) mergeMetadata(ctx context.Context, transactionID string) (string, []string) {
	if !strings.HasPrefix(transactionID, "merge-") {
		return "", nil
	}
	merged, err := s.merges.FindByID(ctx, transactionID)
	if err != nil {
		return "", nil
	}
	return merged.ID, merged.Members
}

// notifyBatch fires the post-batch side effects. All delivery is best
// effort; failures are logged and never surface to the caller.
func (s *WorkstationService) notifyBatch(ctx context.Context, orders []*shipping.Order, batch *BatchResult, opts GenerateOptions) {
	newCodes := make(map[string][]string, len(batch.Results))
	for _, r := range batch.Results {
		if len(r.NewCodes) > 0 {
			newCodes[r.TransactionID] = r.NewCodes
		}
	}

	admin := notify.AdminPayload{GeneratedAt: time.Now(), ServiceCode: opts.ServiceCode}
	var fresh []notify.WebhookOrder
	var msgs []notify.Message
	for _, order := range orders {
		wo := webhookOrder(order)
		admin.Orders = append(admin.Orders, wo)
		if _, ok := newCodes[order.TransactionID]; !ok {
			continue
		}
		fresh = append(fresh, wo)
		if opts.SendWhatsApp {
			msgs = append(msgs, notify.Message{
				Phone: s.messagePhone(order.Recipient.Phone),
				Text:  trackingMessage(order),
			})
		}
	}

	if s.webhooks != nil {
		if err := s.webhooks.NotifyAdmin(ctx, admin); err != nil {
			s.logger.Warn("admin webhook failed", zap.Error(err))
		}
		if opts.NotifyClients {
			if err := s.webhooks.NotifyClient(ctx, notify.ClientPayload{
				GeneratedAt: admin.GeneratedAt,
				Orders:      fresh,
			}); err != nil {
				s.logger.Warn("client webhook failed", zap.Error(err))
			}
		}
	}
	if opts.SendWhatsApp && s.whatsapp != nil && len(msgs) > 0 {
		batch.WhatsAppSent = s.whatsapp.SendBatch(ctx, msgs)
	}
}

// messagePhone redirects every message to the test phone when one is
// configured.
func (s *WorkstationService) messagePhone(phone string) string {
	if s.notifyCfg.WhatsAppTestPhone != "" {
		return s.notifyCfg.WhatsAppTestPhone
	}
	return phone
}

func webhookOrder(order *shipping.Order) notify.WebhookOrder {
	return notify.WebhookOrder{
		TransactionID: order.TransactionID,
		Name:          order.Recipient.Name,
		Email:         order.Recipient.Email,
		Phone:         order.Recipient.Phone,
		Products:      order.Products,
		LabelCodes:    order.LabelCodes,
		LabelStatus:   string(order.LabelStatus),
	}
}

func trackingMessage(order *shipping.Order) string {
	name := firstName(order.Recipient.Name)
	codes := strings.Join(order.LabelCodes, ", ")
	if name == "" {
		return fmt.Sprintf("Seu pedido foi postado! Código de rastreio: %s", codes)
	}
	return fmt.Sprintf("Olá %s! Seu pedido foi postado. Código de rastreio: %s", name, codes)
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// LabelsPDF fetches the consolidated PDF covering the given codes.
func (s *WorkstationService) LabelsPDF(ctx context.Context, codes []string) ([]byte, error) {
	if len(codes) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No label codes selected")
	}
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	return s.provider.FetchPDF(ctx, sorted)
}
