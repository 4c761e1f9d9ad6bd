package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/infrastructure/config"
)

// WhatsAppSender sends per-customer tracking messages through an
// Evolution-style gateway. Messages are spaced by a fixed delay to stay
// under the gateway's flood limits.
type WhatsAppSender struct {
	http     *resty.Client
	instance string
	delay    time.Duration
	logger   *zap.Logger
}

// NewWhatsAppSender creates a WhatsApp sender from configuration.
func NewWhatsAppSender(cfg config.NotifyConfig, logger *zap.Logger) *WhatsAppSender {
	http := resty.New().
		SetBaseURL(cfg.WhatsAppBaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", cfg.WhatsAppAPIKey)
	return &WhatsAppSender{
		http:     http,
		instance: cfg.WhatsAppInstance,
		delay:    cfg.WhatsAppDelay,
		logger:   logger.Named("whatsapp"),
	}
}

// Message is one outbound WhatsApp text.
type Message struct {
	Phone string
	Text  string
}

// Send delivers one message.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"number": msg.Phone,
			"text":   msg.Text,
		}).
		Post("/message/sendText/" + s.instance)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("whatsapp gateway returned %d", resp.StatusCode())
	}
	return nil
}

// SendBatch delivers messages sequentially with the configured delay
// between sends. Individual failures are logged and do not stop the
// batch. Returns how many messages were delivered.
func (s *WhatsAppSender) SendBatch(ctx context.Context, msgs []Message) int {
	sent := 0
	for i, msg := range msgs {
		if msg.Phone == "" {
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return sent
			case <-time.After(s.delay):
			}
		}
		if err := s.Send(ctx, msg); err != nil {
			s.logger.Warn("whatsapp message failed",
				zap.String("phone", msg.Phone),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
