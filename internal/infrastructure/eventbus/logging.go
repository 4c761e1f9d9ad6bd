// Package eventbus provides the in-process domain event publisher.
package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/shared"
)

// Handler reacts to one domain event.
type Handler func(ctx context.Context, event shared.DomainEvent)

// Bus is a synchronous in-process event publisher. Handlers run inline;
// a slow handler slows the publisher, which is acceptable for the small
// event volume this service produces.
type Bus struct {
	logger   *zap.Logger
	handlers map[string][]Handler
}

var _ shared.EventPublisher = (*Bus)(nil)

// New creates an event bus.
func New(logger *zap.Logger) *Bus {
	return &Bus{
		logger:   logger.Named("events"),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for an event type. Not safe for
// concurrent use with Publish; wire all subscriptions during startup.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers events to their subscribers and logs each one.
func (b *Bus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		b.logger.Info("domain event",
			zap.String("type", event.EventType()),
			zap.String("aggregate_type", event.AggregateType()),
			zap.String("aggregate_id", event.AggregateID().String()),
		)
		for _, handler := range b.handlers[event.EventType()] {
			handler(ctx, event)
		}
	}
	return nil
}
