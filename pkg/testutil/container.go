package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the server version the schema is tested against
const PostgresImage = "postgres:16-alpine"

// PostgresContainer is a throwaway PostgreSQL server with the warehouse schema applied
type PostgresContainer struct {
	container *postgres.PostgresContainer
	DB        *database.DB
}

// StartPostgres runs PostgresImage, connects through the production config
// path and applies the embedded migrations
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(PostgresImage),
		postgres.WithDatabase("medflow_warehouse_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			// postgres logs readiness twice: once for the init run, once for the real server
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := database.New(&config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		URL:             url,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, logger.Nop())
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &PostgresContainer{container: container, DB: db}, nil
}

// Reset empties every warehouse table and restarts the ledger sequence.
// TRUNCATE does not fire the ledger's row-level append-only trigger.
func (c *PostgresContainer) Reset(ctx context.Context) error {
	_, err := c.DB.ExecContext(ctx,
		`TRUNCATE ledger_entries, environment_readings, drug_batches RESTART IDENTITY CASCADE`)
	return err
}
