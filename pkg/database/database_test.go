package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	db, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_SQLite(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql"}, applied)

	again, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"drug_batches", "environment_readings", "ledger_entries", "schema_migrations"}, tables)
}

func TestLedgerTriggers_SQLite(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	_, err := db.Migrate(ctx)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO drug_batches
		(id, name, batch_number, specification, expiry_date, location, quantity, status, created_at, updated_at)
		VALUES ('b1', 'Aspirin', 'B1', '100mg', '2030-01-01', 'A-01', 10, 'normal', '2026-01-01 00:00:00', '2026-01-01 00:00:00')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO ledger_entries (kind, batch_id, quantity, detail, occurred_at)
		VALUES ('inbound', 'b1', 10, '', '2026-01-01 00:00:00')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE ledger_entries SET quantity = 11`)
	assert.ErrorContains(t, err, "append-only")

	_, err = db.ExecContext(ctx, `DELETE FROM ledger_entries`)
	assert.ErrorContains(t, err, "append-only")
}

func TestMapSQLiteError(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	_, err := db.Migrate(ctx)
	require.NoError(t, err)

	insert := `INSERT INTO drug_batches
		(id, name, batch_number, specification, expiry_date, location, quantity, status, created_at, updated_at)
		VALUES (?, 'Aspirin', 'B1', '100mg', '2030-01-01', 'A-01', ?, 'normal', '2026-01-01 00:00:00', '2026-01-01 00:00:00')`

	_, err = db.ExecContext(ctx, insert, "b1", 5)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "b2", 5)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	appErr := MapError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	_, err = db.ExecContext(ctx, `UPDATE drug_batches SET quantity = -1 WHERE id = 'b1'`)
	require.Error(t, err)
	appErr = MapError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "quantity")
}

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unique", &pq.Error{Code: "23505", Constraint: "drug_batches_identity"}, "CONFLICT"},
		{"check quantity", &pq.Error{Code: "23514", Constraint: "drug_batches_quantity_non_negative"}, "VALIDATION_ERROR"},
		{"foreign key", &pq.Error{Code: "23503"}, "BAD_REQUEST"},
		{"not null", &pq.Error{Code: "23502", Column: "name"}, "VALIDATION_ERROR"},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	assert.Nil(t, MapError(stderrors.New("plain")))
	assert.Nil(t, MapError(&pq.Error{Code: "42P01"}))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(stderrors.New("plain")))
}

func TestTransaction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := &DB{DB: sqlx.NewDb(sqlDB, "postgres"), logger: logger.Nop()}

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE drug_batches").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
			_, err := tx.Exec("UPDATE drug_batches SET quantity = 1")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.PreconditionFailed("errors.not_quarantined", nil)
		err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
			return sentinel
		})
		assert.Same(t, sentinel, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHealth(t *testing.T) {
	db := openSQLite(t)

	status := db.Health(context.Background())
	assert.Equal(t, "up", status["status"])
	assert.Equal(t, config.DriverSQLite, status["driver"])
}
