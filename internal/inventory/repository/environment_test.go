package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentRepository_LatestEmpty(t *testing.T) {
	repo := repository.NewEnvironmentRepository(testutil.NewSQLiteDB(t))

	_, err := repo.Latest(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestEnvironmentRepository_AppendLatestList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewEnvironmentRepository(testutil.NewSQLiteDB(t))

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	values := []string{"4.5", "5.25", "-18.0"}
	for i, v := range values {
		r := &repository.EnvironmentReading{
			Temperature: decimal.RequireFromString(v),
			Humidity:    decimal.RequireFromString("45.5"),
			RecordedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Append(ctx, r))
		assert.NotZero(t, r.ID)
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-18").Equal(latest.Temperature))
	assert.True(t, latest.RecordedAt.Equal(base.Add(2*time.Hour)))

	all, err := repo.List(ctx, repository.ReadingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, decimal.RequireFromString("5.25").Equal(all[1].Temperature))

	ranged, err := repo.List(ctx, repository.ReadingFilter{From: base.Add(time.Hour), To: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, all[1].ID, ranged[0].ID)

	limited, err := repo.List(ctx, repository.ReadingFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
