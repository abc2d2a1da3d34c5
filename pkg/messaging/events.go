package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventLedgerAppended      = "inventory.ledger.appended"
	EventBatchStatusChanged  = "inventory.batch.status_changed"
	EventEnvironmentRecorded = "inventory.environment.recorded"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// LedgerAppendedEvent is published after a stock operation commits
type LedgerAppendedEvent struct {
	EntryID     int64     `json:"entry_id"`
	Kind        string    `json:"kind"`
	BatchID     string    `json:"batch_id"`
	Quantity    int       `json:"quantity"`
	Detail      string    `json:"detail"`
	OccurredAt  time.Time `json:"occurred_at"`
	NewQuantity int       `json:"new_quantity"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
}

// BatchStatusChangedEvent is published when a batch moves to a new status
type BatchStatusChangedEvent struct {
	BatchID    string `json:"batch_id"`
	Name       string `json:"name"`
	BatchNo    string `json:"batch_number"`
	ExpiryDate string `json:"expiry_date"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
	Quantity   int    `json:"quantity"`
}

// EnvironmentRecordedEvent is published when an environment reading is stored
type EnvironmentRecordedEvent struct {
	ReadingID   int64     `json:"reading_id"`
	Temperature string    `json:"temperature"`
	Humidity    string    `json:"humidity"`
	Note        string    `json:"note,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}
