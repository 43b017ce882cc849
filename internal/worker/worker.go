package worker

import (
	"context"
	"encoding/json"
	"log"

	"github.com/AP5B/backend/internal/broker"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// AuditStore is the slice of persistence the audit worker needs.
type AuditStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AuditWorker consumes the booking event stream and keeps a processed-event
// audit trail. Deliveries are at-least-once, so each event is deduplicated
// by id before being recorded.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        AuditStore
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, store AuditStore) *AuditWorker {
	w := &AuditWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        store,
	}

	w.eventHandler.On(models.EventTypeBookingCreated, w.record)
	w.eventHandler.On(models.EventTypeBookingAccepted, w.record)
	w.eventHandler.On(models.EventTypeBookingRejected, w.record)
	w.eventHandler.On(models.EventTypeBookingPaid, w.record)
	w.eventHandler.On(models.EventTypeBookingConfirmed, w.record)
	w.eventHandler.On(models.EventTypePaymentRefunded, w.record)

	return w
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) record(ctx context.Context, raw []byte) error {
	var base models.BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		return err
	}

	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return err
	}
	if processed {
		util.GetLogger().Debug("Skipping already processed event",
			zap.String("event_id", base.EventID))
		return nil
	}

	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		return err
	}

	util.EventsConsumedTotal.WithLabelValues(base.EventType).Inc()
	util.GetLogger().Info("Booking event recorded",
		zap.String("event_id", base.EventID),
		zap.String("event_type", base.EventType))
	return nil
}
