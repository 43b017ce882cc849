package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// producer is what EventPublisher needs from the kafka layer; tests swap in
// an in-memory implementation.
type producer interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing booking lifecycle events
type EventPublisher struct {
	producer producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(p producer) *EventPublisher {
	return &EventPublisher{producer: p}
}

func bookingKey(classRequestID int64) string {
	return fmt.Sprintf("booking-%d", classRequestID)
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// PublishBookingAccepted publishes BookingAccepted event
func (ep *EventPublisher) PublishBookingAccepted(ctx context.Context, event *models.BookingAcceptedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// PublishBookingRejected publishes BookingRejected event
func (ep *EventPublisher) PublishBookingRejected(ctx context.Context, event *models.BookingRejectedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// PublishBookingPaid publishes BookingPaid event
func (ep *EventPublisher) PublishBookingPaid(ctx context.Context, event *models.BookingPaidEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// PublishBookingConfirmed publishes BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// PublishPaymentRefunded publishes PaymentRefunded event
func (ep *EventPublisher) PublishPaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.ClassRequestID), event)
}

// EventHandler routes consumed messages to registered handlers
type EventHandler struct {
	handlers map[string]func(ctx context.Context, raw []byte) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{handlers: make(map[string]func(ctx context.Context, raw []byte) error)}
}

// On registers a handler for an event type
func (eh *EventHandler) On(eventType string, handler func(ctx context.Context, raw []byte) error) {
	eh.handlers[eventType] = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	handler, ok := eh.handlers[baseEvent.EventType]
	if !ok {
		util.GetLogger().Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
		return nil
	}

	return handler(ctx, msg.Value)
}
