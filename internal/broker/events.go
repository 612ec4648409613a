package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"autoparts-orders/internal/models"
)

// EventPublisher handles publishing order lifecycle events. Messages for
// one order share a key so consumers see them in order.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderEventKey(unifiedID string) string {
	return fmt.Sprintf("order-%s", unifiedID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.UnifiedID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.UnifiedID), event)
}

// PublishLegacySyncFailed publishes LegacySyncFailed event
func (ep *EventPublisher) PublishLegacySyncFailed(ctx context.Context, event *models.LegacySyncFailedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.UnifiedID), event)
}

// PublishLegacySyncRecovered publishes LegacySyncRecovered event
func (ep *EventPublisher) PublishLegacySyncRecovered(ctx context.Context, event *models.LegacySyncRecoveredEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.UnifiedID), event)
}

// EventHandler routes incoming events to registered callbacks.
type EventHandler struct {
	onLegacySyncFailed func(context.Context, *models.LegacySyncFailedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnLegacySyncFailed registers a handler for LegacySyncFailed events
func (eh *EventHandler) OnLegacySyncFailed(handler func(context.Context, *models.LegacySyncFailedEvent) error) {
	eh.onLegacySyncFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeLegacySyncFailed:
		if eh.onLegacySyncFailed != nil {
			var event models.LegacySyncFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LegacySyncFailed event: %w", err)
			}
			return eh.onLegacySyncFailed(ctx, &event)
		}

	default:
		log.Printf("Ignoring event type: %s", baseEvent.EventType)
	}

	return nil
}
