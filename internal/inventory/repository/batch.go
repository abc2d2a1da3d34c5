package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/drug-warehouse/pkg/errors"
)

const batchColumns = `id, name, batch_number, specification, expiry_date, location, quantity, status, created_at, updated_at`

// BatchRepository handles batch persistence
type BatchRepository struct {
	db sqlx.ExtContext
}

// NewBatchRepository creates a batch repository on a DB or a Tx
func NewBatchRepository(db sqlx.ExtContext) *BatchRepository {
	return &BatchRepository{db: db}
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*Batch, error) {
	return r.get(ctx, `SELECT `+batchColumns+` FROM drug_batches WHERE id = ?`, id)
}

// GetForUpdate reads a batch under a row lock. SQLite transactions already hold the write lock.
func (r *BatchRepository) GetForUpdate(ctx context.Context, id string) (*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM drug_batches WHERE id = ?`
	if r.db.DriverName() == "postgres" {
		query += ` FOR UPDATE`
	}
	return r.get(ctx, query, id)
}

// FindByIdentity gets the batch with the given identity tuple
func (r *BatchRepository) FindByIdentity(ctx context.Context, id Identity) (*Batch, error) {
	query := `
		SELECT ` + batchColumns + ` FROM drug_batches
		WHERE name = ? AND batch_number = ? AND specification = ? AND expiry_date = ? AND location = ?
	`
	return r.get(ctx, query, id.Name, id.BatchNumber, id.Specification, id.ExpiryDate, id.Location)
}

func (r *BatchRepository) get(ctx context.Context, query string, args ...interface{}) (*Batch, error) {
	var batch Batch
	if err := sqlx.GetContext(ctx, r.db, &batch, r.db.Rebind(query), args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundWithKey("batch")
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// UpsertInbound inserts a new batch or accumulates quantity onto the existing identity.
// The existing row's status is kept; derivation refreshes it afterwards.
func (r *BatchRepository) UpsertInbound(ctx context.Context, b *Batch) (bool, error) {
	query := `
		INSERT INTO drug_batches (` + batchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, batch_number, specification, expiry_date, location)
		DO UPDATE SET
			quantity = drug_batches.quantity + excluded.quantity,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id string
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		b.ID, b.Name, b.BatchNumber, b.Specification, b.ExpiryDate, b.Location,
		b.Quantity, b.Status, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("upsert batch: %w", err)
	}

	created := id == b.ID
	b.ID = id
	return created, nil
}

// Update writes the mutable fields of a batch
func (r *BatchRepository) Update(ctx context.Context, b *Batch) error {
	query := `
		UPDATE drug_batches SET
			location = ?, quantity = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		b.Location, b.Quantity, b.Status, b.UpdatedAt.UTC(), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFoundWithKey("batch")
	}

	return nil
}

// List lists batches whose name contains the given substring; an empty name lists all
func (r *BatchRepository) List(ctx context.Context, name string) ([]*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM drug_batches`
	var args []interface{}
	if name != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(name)+"%")
	}
	query += ` ORDER BY created_at, id`

	batches := []*Batch{}
	if err := sqlx.SelectContext(ctx, r.db, &batches, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// ListTracked lists batches with stock that are not quarantined
func (r *BatchRepository) ListTracked(ctx context.Context) ([]*Batch, error) {
	query := `
		SELECT ` + batchColumns + ` FROM drug_batches
		WHERE quantity > 0 AND status <> 'quarantined'
		ORDER BY id
	`

	batches := []*Batch{}
	if err := sqlx.SelectContext(ctx, r.db, &batches, query); err != nil {
		return nil, fmt.Errorf("list tracked batches: %w", err)
	}
	return batches, nil
}

// SetDerivedStatus stores a derived status. Quarantined and empty batches are left alone.
// It reports whether the row changed.
func (r *BatchRepository) SetDerivedStatus(ctx context.Context, id string, status Status, at time.Time) (bool, error) {
	query := `
		UPDATE drug_batches SET status = ?, updated_at = ?
		WHERE id = ? AND quantity > 0 AND status <> 'quarantined' AND status <> ?
	`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), status, at.UTC(), id, status)
	if err != nil {
		return false, fmt.Errorf("set batch status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set batch status: %w", err)
	}
	return affected > 0, nil
}

// Summary aggregates stock for the dashboard. Status counts only include batches with stock.
func (r *BatchRepository) Summary(ctx context.Context) (*StockSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COUNT(CASE WHEN status = 'expiring_soon' AND quantity > 0 THEN 1 END) AS expiring_soon,
			COUNT(CASE WHEN status = 'expired' AND quantity > 0 THEN 1 END) AS expired,
			COUNT(CASE WHEN status = 'quarantined' AND quantity > 0 THEN 1 END) AS quarantined,
			COUNT(*) AS batches
		FROM drug_batches
	`

	var summary StockSummary
	if err := sqlx.GetContext(ctx, r.db, &summary, query); err != nil {
		return nil, fmt.Errorf("summarize stock: %w", err)
	}
	return &summary, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
