package events

import (
	"context"

	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/medflow/drug-warehouse/pkg/messaging"
)

// Source identifies this service on published events
const Source = "warehouse-service"

// Sink delivers a typed event payload. *messaging.Publisher implements it.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes inventory events after their transaction commits.
// A nil publisher drops events; failures are logged and never returned.
type InventoryEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewInventoryEventPublisher creates a publisher on the inventory exchange.
// Events carry the HTTP request id as their correlation id.
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, Source, httputil.GetRequestID, log)
	if err != nil {
		return nil, err
	}
	return NewInventoryEventPublisherWithSink(publisher, log), nil
}

// NewInventoryEventPublisherWithSink creates a publisher writing to sink
func NewInventoryEventPublisherWithSink(sink Sink, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		sink:   sink,
		logger: log,
	}
}

// PublishLedgerAppended publishes a committed ledger entry with the batch state it produced
func (p *InventoryEventPublisher) PublishLedgerAppended(ctx context.Context, entry *repository.LedgerEntry, batch *repository.Batch) {
	if p == nil {
		return
	}

	data := messaging.LedgerAppendedEvent{
		EntryID:     entry.ID,
		Kind:        string(entry.Kind),
		BatchID:     entry.BatchID,
		Quantity:    entry.Quantity,
		Detail:      entry.Detail,
		OccurredAt:  entry.OccurredAt,
		NewQuantity: batch.Quantity,
		Status:      string(batch.Status),
		Location:    batch.Location,
	}

	if err := p.sink.Publish(ctx, messaging.EventLedgerAppended, data); err != nil {
		p.logger.Error().Err(err).Int64("entry_id", entry.ID).Str("batch_id", entry.BatchID).Msg("failed to publish ledger appended event")
	}
}

// PublishStatusChanged publishes a derived status transition
func (p *InventoryEventPublisher) PublishStatusChanged(ctx context.Context, batch *repository.Batch, old repository.Status) {
	if p == nil {
		return
	}

	data := messaging.BatchStatusChangedEvent{
		BatchID:    batch.ID,
		Name:       batch.Name,
		BatchNo:    batch.BatchNumber,
		ExpiryDate: batch.ExpiryDate.String(),
		OldStatus:  string(old),
		NewStatus:  string(batch.Status),
		Quantity:   batch.Quantity,
	}

	if err := p.sink.Publish(ctx, messaging.EventBatchStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish status changed event")
	}
}

// PublishEnvironmentRecorded publishes a stored environment reading
func (p *InventoryEventPublisher) PublishEnvironmentRecorded(ctx context.Context, reading *repository.EnvironmentReading) {
	if p == nil {
		return
	}

	data := messaging.EnvironmentRecordedEvent{
		ReadingID:   reading.ID,
		Temperature: reading.Temperature.String(),
		Humidity:    reading.Humidity.String(),
		Note:        reading.Note,
		RecordedAt:  reading.RecordedAt,
	}

	if err := p.sink.Publish(ctx, messaging.EventEnvironmentRecorded, data); err != nil {
		p.logger.Error().Err(err).Int64("reading_id", reading.ID).Msg("failed to publish environment recorded event")
	}
}
