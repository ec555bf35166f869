package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"pos-terminal/internal/models"
	"pos-terminal/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter writes keyed events to a topic
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleCommitted publishes SaleCommitted event keyed by sale
func (ep *EventPublisher) PublishSaleCommitted(ctx context.Context, event *models.SaleCommittedEvent) error {
	key := fmt.Sprintf("sale-%d", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSaleCommitted func(context.Context, *models.SaleCommittedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleCommitted registers a handler for SaleCommitted events
func (eh *EventHandler) OnSaleCommitted(handler func(context.Context, *models.SaleCommittedEvent) error) {
	eh.onSaleCommitted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSaleCommitted:
		if eh.onSaleCommitted != nil {
			var event models.SaleCommittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCommitted event: %w", err)
			}
			return eh.onSaleCommitted(ctx, &event)
		}

	default:
		logger.Info("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
