package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const ledgerColumns = `id, kind, batch_id, quantity, detail, occurred_at`

// LedgerRepository appends to and reads the operation ledger.
// There is no update or delete; the schema rejects both.
type LedgerRepository struct {
	db sqlx.ExtContext
}

// NewLedgerRepository creates a ledger repository on a DB or a Tx
func NewLedgerRepository(db sqlx.ExtContext) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append stores entry and sets its ID
func (r *LedgerRepository) Append(ctx context.Context, entry *LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (kind, batch_id, quantity, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		entry.Kind, entry.BatchID, entry.Quantity, entry.Detail, entry.OccurredAt.UTC(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// List returns entries matching filter in (occurred_at, id) order
func (r *LedgerRepository) List(ctx context.Context, filter LedgerFilter) ([]*LedgerEntry, error) {
	where, args := filter.where()
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries` + where + ` ORDER BY occurred_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	entries := []*LedgerEntry{}
	if err := sqlx.SelectContext(ctx, r.db, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching filter; Limit is ignored
func (r *LedgerRepository) Count(ctx context.Context, filter LedgerFilter) (int64, error) {
	where, args := filter.where()

	var count int64
	if err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(`SELECT COUNT(*) FROM ledger_entries`+where), args...); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return count, nil
}

// Totals sums quantity per batch and kind
func (r *LedgerRepository) Totals(ctx context.Context) ([]*LedgerTotals, error) {
	query := `
		SELECT batch_id, kind, COALESCE(SUM(quantity), 0) AS quantity, COUNT(*) AS entries
		FROM ledger_entries
		GROUP BY batch_id, kind
		ORDER BY batch_id, kind
	`

	totals := []*LedgerTotals{}
	if err := sqlx.SelectContext(ctx, r.db, &totals, query); err != nil {
		return nil, fmt.Errorf("sum ledger entries: %w", err)
	}
	return totals, nil
}

func (f LedgerFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.BatchID != "" {
		conds = append(conds, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at < ?")
		args = append(args, f.To.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
