package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/medflow/drug-warehouse/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
}

func (c *recordingChannel) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange = exchange
	c.key = key
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &recordingChannel{}
	correlate := func(context.Context) string { return "req-42" }
	p := NewPublisherWithChannel(ch, ExchangeInventoryEvents, "warehouse-service", correlate, logger.Nop())

	err := p.Publish(context.Background(), EventLedgerAppended, LedgerAppendedEvent{EntryID: 7, Kind: "outbound", BatchID: "b1", Quantity: 5})
	require.NoError(t, err)

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, ExchangeInventoryEvents, ch.exchange)
	assert.Equal(t, EventLedgerAppended, ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "req-42", msg.CorrelationId)
	assert.Equal(t, "warehouse-service", msg.AppId)
	assert.Equal(t, EventLedgerAppended, msg.Type)

	var event Event
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, msg.MessageId, event.ID)
	assert.Equal(t, "warehouse-service", event.Source)

	var data LedgerAppendedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, int64(7), data.EntryID)
	assert.Equal(t, 5, data.Quantity)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &recordingChannel{err: amqp.ErrClosed}
	p := NewPublisherWithChannel(ch, ExchangeInventoryEvents, "warehouse-service", nil, logger.Nop())

	err := p.Publish(context.Background(), EventLedgerAppended, LedgerAppendedEvent{})
	assert.ErrorIs(t, err, amqp.ErrClosed)
	assert.Empty(t, ch.msgs)
}
