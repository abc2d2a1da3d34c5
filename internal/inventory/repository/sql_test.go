package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These check the PostgreSQL form of the queries: $n placeholders and row locks.

func TestBatchRepository_GetForUpdate_LocksOnPostgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.Mock.ExpectQuery(`SELECT .+ FROM drug_batches WHERE id = \$1 FOR UPDATE`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(testutil.BatchColumns).
			AddRow("b-1", "Ibuprofen", "B-1", "200mg", now, "A-01", 10, "normal", now, now))

	batch, err := repository.NewBatchRepository(mockDB.DB).GetForUpdate(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, 10, batch.Quantity)
	assert.Equal(t, repository.DateOf(now).String(), batch.ExpiryDate.String())
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GetForUpdate_NoLockOnSQLite(t *testing.T) {
	mockDB := testutil.NewMockDBWithDriver(t, "sqlite")
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectQuery(`FROM drug_batches WHERE id = ?`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(testutil.BatchColumns).
			AddRow("b-1", "Ibuprofen", "B-1", "200mg", "2027-01-31", "A-01", 10, "normal", now, now))

	batch, err := repository.NewBatchRepository(mockDB.DB).GetForUpdate(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "2027-01-31", batch.ExpiryDate.String())
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_SetDerivedStatus_SQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectExec(`UPDATE drug_batches SET status = \$1, updated_at = \$2\s+WHERE id = \$3 AND quantity > 0 AND status <> 'quarantined' AND status <> \$4`).
		WithArgs(repository.StatusExpired, testutil.AnyTime{}, "b-1", repository.StatusExpired).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repository.NewBatchRepository(mockDB.DB).
		SetDerivedStatus(context.Background(), "b-1", repository.StatusExpired, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerRepository_Append_SQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery(`(?s)INSERT INTO ledger_entries .+VALUES \(\$1, \$2, \$3, \$4, \$5\)\s+RETURNING id`).
		WithArgs(repository.KindOutbound, "b-1", 5, "", testutil.AnyTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	entry := &repository.LedgerEntry{Kind: repository.KindOutbound, BatchID: "b-1", Quantity: 5, OccurredAt: time.Now()}
	require.NoError(t, repository.NewLedgerRepository(mockDB.DB).Append(context.Background(), entry))
	assert.Equal(t, int64(42), entry.ID)
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerRepository_List_FilterSQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery(`FROM ledger_entries WHERE batch_id = \$1 AND kind = \$2 ORDER BY occurred_at, id LIMIT \$3`).
		WithArgs("b-1", repository.KindInbound, 20).
		WillReturnRows(sqlmock.NewRows(testutil.LedgerColumns))

	entries, err := repository.NewLedgerRepository(mockDB.DB).List(context.Background(), repository.LedgerFilter{
		BatchID: "b-1",
		Kind:    repository.KindInbound,
		Limit:   20,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_UpsertInbound_SQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	expiry, err := repository.ParseDate("2027-03-31")
	require.NoError(t, err)
	now := time.Now()
	b := &repository.Batch{
		ID:            uuid.NewString(),
		Name:          "Ibuprofen",
		BatchNumber:   "B-1",
		Specification: "200mg",
		ExpiryDate:    expiry,
		Location:      "A-01",
		Quantity:      50,
		Status:        repository.StatusNormal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mockDB.Mock.ExpectQuery(`(?s)INSERT INTO drug_batches .+ON CONFLICT \(name, batch_number, specification, expiry_date, location\)\s+DO UPDATE SET\s+quantity = drug_batches.quantity \+ excluded.quantity`).
		WithArgs(testutil.AnyUUID{}, "Ibuprofen", "B-1", "200mg", "2027-03-31", "A-01", 50, repository.StatusNormal, testutil.AnyTime{}, testutil.AnyTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	created, err := repository.NewBatchRepository(mockDB.DB).UpsertInbound(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", b.ID)
	mockDB.ExpectationsWereMet(t)
}
