package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/drug-warehouse/pkg/database"
)

// BatchStore persists batch records. Batches are never deleted.
type BatchStore interface {
	GetByID(ctx context.Context, id string) (*Batch, error)
	// GetForUpdate reads a batch and holds it against concurrent writers until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*Batch, error)
	FindByIdentity(ctx context.Context, identity Identity) (*Batch, error)
	// UpsertInbound inserts b or adds b.Quantity to the batch with the same identity.
	// b.ID is set to the stored row's id.
	UpsertInbound(ctx context.Context, b *Batch) (created bool, err error)
	Update(ctx context.Context, b *Batch) error
	List(ctx context.Context, name string) ([]*Batch, error)
	// ListTracked returns batches subject to status derivation
	ListTracked(ctx context.Context) ([]*Batch, error)
	SetDerivedStatus(ctx context.Context, id string, status Status, at time.Time) (bool, error)
	Summary(ctx context.Context) (*StockSummary, error)
}

// LedgerStore is the append-only operation log
type LedgerStore interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	List(ctx context.Context, filter LedgerFilter) ([]*LedgerEntry, error)
	Count(ctx context.Context, filter LedgerFilter) (int64, error)
	Totals(ctx context.Context) ([]*LedgerTotals, error)
}

// EnvironmentStore keeps environment readings
type EnvironmentStore interface {
	Append(ctx context.Context, reading *EnvironmentReading) error
	Latest(ctx context.Context) (*EnvironmentReading, error)
	List(ctx context.Context, filter ReadingFilter) ([]*EnvironmentReading, error)
}

// Store hands out repositories on the shared handle or inside a transaction
type Store struct {
	db *database.DB
}

// NewStore creates a new store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Batches returns a batch repository outside any transaction
func (s *Store) Batches() BatchStore {
	return NewBatchRepository(s.db)
}

// Ledger returns a ledger repository outside any transaction
func (s *Store) Ledger() LedgerStore {
	return NewLedgerRepository(s.db)
}

// Environment returns the environment reading repository
func (s *Store) Environment() EnvironmentStore {
	return NewEnvironmentRepository(s.db)
}

// Run executes fn with repositories bound to one transaction, committing if fn returns nil.
// fn must not touch the store's non-transactional repositories: SQLite runs on a single connection.
func (s *Store) Run(ctx context.Context, fn func(batches BatchStore, ledger LedgerStore) error) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(NewBatchRepository(tx), NewLedgerRepository(tx))
	})
}
