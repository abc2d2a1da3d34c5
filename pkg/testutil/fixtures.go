package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/drug-warehouse/pkg/database"
)

// BatchFixture is a drug_batches row written directly, bypassing the ledger
type BatchFixture struct {
	ID            string
	Name          string
	BatchNumber   string
	Specification string
	ExpiryDate    time.Time
	Location      string
	Quantity      int
	Status        string
}

// NewBatchFixture returns a normal batch of 100 units expiring in a year
func NewBatchFixture() *BatchFixture {
	return &BatchFixture{
		ID:            uuid.New().String(),
		Name:          "Amoxicillin",
		BatchNumber:   "AMX-" + uuid.New().String()[:8],
		Specification: "500mg x 24",
		ExpiryDate:    time.Now().AddDate(1, 0, 0),
		Location:      "A-01-01",
		Quantity:      100,
		Status:        "normal",
	}
}

// ExpiringOn sets the expiry date
func (f *BatchFixture) ExpiringOn(day time.Time) *BatchFixture {
	f.ExpiryDate = day
	return f
}

// WithQuantity sets the quantity
func (f *BatchFixture) WithQuantity(q int) *BatchFixture {
	f.Quantity = q
	return f
}

// Insert writes the fixture row
func (f *BatchFixture) Insert(t *testing.T, db *database.DB) *BatchFixture {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(), db.Rebind(`
		INSERT INTO drug_batches
			(id, name, batch_number, specification, expiry_date, location, quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		f.ID, f.Name, f.BatchNumber, f.Specification, f.ExpiryDate.Format("2006-01-02"),
		f.Location, f.Quantity, f.Status, now, now,
	)
	if err != nil {
		t.Fatalf("failed to insert batch fixture: %v", err)
	}
	return f
}
