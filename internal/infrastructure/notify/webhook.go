// Package notify delivers post-batch notifications: automation webhooks
// and WhatsApp messages. All delivery is best effort; the label batch
// never fails because a notification could not be sent.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/infrastructure/config"
)

// WebhookOrder is one order as reported to the automation webhooks.
type WebhookOrder struct {
	TransactionID string   `json:"transactionId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Products      []string `json:"products"`
	LabelCodes    []string `json:"labelCodes"`
	LabelStatus   string   `json:"labelStatus"`
}

// AdminPayload reports a whole batch to the internal automation flow.
type AdminPayload struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	ServiceCode string         `json:"serviceCode"`
	Orders      []WebhookOrder `json:"orders"`
}

// ClientPayload reports only freshly generated labels to the
// customer-facing automation flow.
type ClientPayload struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Orders      []WebhookOrder `json:"orders"`
}

// WebhookNotifier posts batch results to the configured automation URLs.
type WebhookNotifier struct {
	http          *resty.Client
	adminURL      string
	clientURL     string
	clientEnabled bool
	logger        *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier from configuration.
func NewWebhookNotifier(cfg config.NotifyConfig, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		http:          resty.New().SetTimeout(15 * time.Second),
		adminURL:      cfg.WebhookAdminURL,
		clientURL:     cfg.WebhookClientURL,
		clientEnabled: cfg.ClientNotifyEnabled,
		logger:        logger.Named("webhook"),
	}
}

// NotifyAdmin reports every selected order of a batch, regardless of
// whether its label was generated now or earlier.
func (n *WebhookNotifier) NotifyAdmin(ctx context.Context, payload AdminPayload) error {
	if n.adminURL == "" {
		return nil
	}
	return n.post(ctx, n.adminURL, payload)
}

// NotifyClient reports only orders whose labels were generated in this
// batch. Gated by configuration so staging runs never ping customers.
func (n *WebhookNotifier) NotifyClient(ctx context.Context, payload ClientPayload) error {
	if !n.clientEnabled || n.clientURL == "" {
		n.logger.Debug("client webhook disabled, skipping",
			zap.Int("orders", len(payload.Orders)))
		return nil
	}
	if len(payload.Orders) == 0 {
		return nil
	}
	return n.post(ctx, n.clientURL, payload)
}

func (n *WebhookNotifier) post(ctx context.Context, url string, body interface{}) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned %d", resp.StatusCode())
	}
	return nil
}
