package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_UpsertInbound(t *testing.T) {
	db := testutil.PostgresDB(t)
	ctx := context.Background()
	repo := repository.NewBatchRepository(db)

	first := newBatch("Ibuprofen", "A-01", 100, farExpiry())
	_, err := repo.UpsertInbound(ctx, first)
	require.NoError(t, err)

	second := newBatch("Ibuprofen", "A-01", 50, first.ExpiryDate)
	created, err := repo.UpsertInbound(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, stored.Quantity)
}

func TestPostgres_GetForUpdate_SerializesWriters(t *testing.T) {
	db := testutil.PostgresDB(t)
	ctx := context.Background()
	store := repository.NewStore(db)

	batch := newBatch("Ibuprofen", "A-01", 10, farExpiry())
	_, err := store.Batches().UpsertInbound(ctx, batch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Run(ctx, func(batches repository.BatchStore, _ repository.LedgerStore) error {
				b, err := batches.GetForUpdate(ctx, batch.ID)
				if err != nil {
					return err
				}
				b.Quantity--
				return batches.Update(ctx, b)
			})
		}()
	}
	wg.Wait()

	stored, err := store.Batches().GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
}
