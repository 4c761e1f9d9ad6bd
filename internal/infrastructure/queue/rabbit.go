// Package queue implements the RabbitMQ-backed row task transport for
// queue-mode imports.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/infrastructure/config"
)

const rowRoutingKey = "import.row"

// RowTask is one CSV row travelling through the queue. The raw fields go
// along so the consumer can normalize without re-reading the file.
type RowTask struct {
	JobID  uuid.UUID         `json:"jobId"`
	Offset int               `json:"offset"`
	Line   int               `json:"line"`
	Fields map[string]string `json:"fields"`
}

// Rabbit wraps the AMQP connection and the declared import topology.
type Rabbit struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.QueueConfig
	logger  *zap.Logger
}

// Connect dials RabbitMQ and declares the import exchange and row queue.
func Connect(cfg config.QueueConfig, logger *zap.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.RowQueue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.RowQueue, rowRoutingKey, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Rabbit{conn: conn, channel: ch, cfg: cfg, logger: logger.Named("queue")}, nil
}

// Close tears down the channel and connection.
func (r *Rabbit) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// PublishRow enqueues one row task.
func (r *Rabbit) PublishRow(ctx context.Context, task RowTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal row task: %w", err)
	}
	err = r.channel.PublishWithContext(ctx, r.cfg.Exchange, rowRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      amqp.Table{"x-retry-count": int32(0)},
	})
	if err != nil {
		return fmt.Errorf("publish row task: %w", err)
	}
	return nil
}

// RowHandler processes one row task. A returned error triggers a retry
// until the configured maximum, after which the task is dropped.
type RowHandler func(ctx context.Context, task RowTask) error

// ConsumeRows processes row tasks until the context is cancelled. Failed
// tasks are republished with an incremented retry counter so a transient
// CRM error gets another chance without blocking the queue head.
func (r *Rabbit) ConsumeRows(ctx context.Context, handler RowHandler) error {
	deliveries, err := r.channel.Consume(r.cfg.RowQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.cfg.RowQueue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.handleDelivery(ctx, d, handler)
		}
	}
}

func (r *Rabbit) handleDelivery(ctx context.Context, d amqp.Delivery, handler RowHandler) {
	var task RowTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		r.logger.Error("malformed row task, dropping", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, task); err != nil {
		retries := retryCount(d)
		if retries+1 >= r.cfg.MaxRetries {
			r.logger.Error("row task failed, retries exhausted",
				zap.String("job_id", task.JobID.String()),
				zap.Int("offset", task.Offset),
				zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		r.logger.Warn("row task failed, requeueing",
			zap.String("job_id", task.JobID.String()),
			zap.Int("offset", task.Offset),
			zap.Int("retries", retries),
			zap.Error(err))
		if pubErr := r.republish(ctx, d, retries+1); pubErr != nil {
			r.logger.Error("republish failed", zap.Error(pubErr))
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
		return
	}
	_ = d.Ack(false)
}

func (r *Rabbit) republish(ctx context.Context, d amqp.Delivery, retries int) error {
	return r.channel.PublishWithContext(ctx, r.cfg.Exchange, rowRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         d.Body,
		Headers:      amqp.Table{"x-retry-count": int32(retries)},
	})
}

func retryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
