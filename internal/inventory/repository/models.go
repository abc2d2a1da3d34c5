package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the shelf-life state of a batch
type Status string

const (
	StatusNormal       Status = "normal"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	StatusQuarantined  Status = "quarantined"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusExpiringSoon, StatusExpired, StatusQuarantined:
		return true
	}
	return false
}

// OperationKind names a ledger entry type
type OperationKind string

const (
	KindInbound    OperationKind = "inbound"
	KindOutbound   OperationKind = "outbound"
	KindTransfer   OperationKind = "transfer"
	KindQuarantine OperationKind = "quarantine"
	KindDispose    OperationKind = "dispose"
)

// Valid reports whether k is a known operation kind
func (k OperationKind) Valid() bool {
	switch k {
	case KindInbound, KindOutbound, KindTransfer, KindQuarantine, KindDispose:
		return true
	}
	return false
}

// Batch is one lot of a drug at one location
type Batch struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	BatchNumber   string    `db:"batch_number" json:"batch_number"`
	Specification string    `db:"specification" json:"specification"`
	ExpiryDate    Date      `db:"expiry_date" json:"expiry_date"`
	Location      string    `db:"location" json:"location"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Status        Status    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Identity is the deduplication key for inbound stock
type Identity struct {
	Name          string
	BatchNumber   string
	Specification string
	ExpiryDate    Date
	Location      string
}

// Identity returns the batch's deduplication key
func (b *Batch) Identity() Identity {
	return Identity{
		Name:          b.Name,
		BatchNumber:   b.BatchNumber,
		Specification: b.Specification,
		ExpiryDate:    b.ExpiryDate,
		Location:      b.Location,
	}
}

// LedgerEntry is one immutable record of a stock or location change.
// Quantity is a magnitude; Kind gives its sign.
type LedgerEntry struct {
	ID         int64         `db:"id" json:"id"`
	Kind       OperationKind `db:"kind" json:"kind"`
	BatchID    string        `db:"batch_id" json:"batch_id"`
	Quantity   int           `db:"quantity" json:"quantity"`
	Detail     string        `db:"detail" json:"detail"`
	OccurredAt time.Time     `db:"occurred_at" json:"occurred_at"`
}

// LedgerFilter narrows ledger reads. Zero fields do not filter.
type LedgerFilter struct {
	BatchID string
	Kind    OperationKind
	From    time.Time // inclusive
	To      time.Time // exclusive
	Limit   int
}

// LedgerTotals sums ledger quantities for one batch and kind
type LedgerTotals struct {
	BatchID  string        `db:"batch_id" json:"batch_id"`
	Kind     OperationKind `db:"kind" json:"kind"`
	Quantity int64         `db:"quantity" json:"quantity"`
	Entries  int64         `db:"entries" json:"entries"`
}

// StockSummary is the dashboard aggregate over batch rows
type StockSummary struct {
	TotalQuantity int64 `db:"total_quantity" json:"total_quantity"`
	ExpiringSoon  int64 `db:"expiring_soon" json:"expiring_soon"`
	Expired       int64 `db:"expired" json:"expired"`
	Quarantined   int64 `db:"quarantined" json:"quarantined"`
	Batches       int64 `db:"batches" json:"batches"`
}

// EnvironmentReading is a timestamped temperature and humidity sample
type EnvironmentReading struct {
	ID          int64           `db:"id" json:"id"`
	Temperature decimal.Decimal `db:"temperature" json:"temperature"`
	Humidity    decimal.Decimal `db:"humidity" json:"humidity"`
	Note        string          `db:"note" json:"note"`
	RecordedAt  time.Time       `db:"recorded_at" json:"recorded_at"`
}

// ReadingFilter narrows environment reads
type ReadingFilter struct {
	From  time.Time // inclusive
	To    time.Time // exclusive
	Limit int
}
