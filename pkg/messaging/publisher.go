package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medflow/drug-warehouse/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel sends one message to an exchange. *RabbitMQ implements it with confirms.
type Channel interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// CorrelationFunc extracts the id that ties an event to the request that caused it
type CorrelationFunc func(ctx context.Context) string

// Publisher wraps event payloads in an Event envelope and routes them by type
type Publisher struct {
	channel   Channel
	exchange  string
	source    string
	correlate CorrelationFunc
	logger    *logger.Logger
}

// NewPublisher declares the exchange on rmq and returns a publisher bound to it
func NewPublisher(rmq *RabbitMQ, exchange, source string, correlate CorrelationFunc, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return NewPublisherWithChannel(rmq, exchange, source, correlate, log), nil
}

// NewPublisherWithChannel returns a publisher on an already prepared channel.
// correlate may be nil.
func NewPublisherWithChannel(ch Channel, exchange, source string, correlate CorrelationFunc, log *logger.Logger) *Publisher {
	if correlate == nil {
		correlate = func(context.Context) string { return "" }
	}
	return &Publisher{
		channel:   ch,
		exchange:  exchange,
		source:    source,
		correlate: correlate,
		logger:    log,
	}
}

// Publish sends data as a persistent JSON message; the event type is the routing key
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	correlationID := p.correlate(ctx)

	event, err := NewEvent(eventType, p.source, correlationID, data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(ctx, p.exchange, eventType, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: correlationID,
		Timestamp:     event.Timestamp,
		Type:          eventType,
		AppId:         p.source,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", correlationID).
		Msg("event published")
	return nil
}
