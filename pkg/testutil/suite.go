package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/medflow/drug-warehouse/pkg/database"
)

// IntegrationEnv enables tests that need Docker
const IntegrationEnv = "MEDFLOW_INTEGRATION"

var (
	// One container per test binary; it is reaped by testcontainers' ryuk sidecar
	sharedPostgres *PostgresContainer
	sharedOnce     sync.Once
	sharedErr      error
)

// RequireIntegration skips the test unless MEDFLOW_INTEGRATION=1
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(IntegrationEnv) != "1" {
		t.Skipf("set %s=1 to run integration tests against PostgreSQL", IntegrationEnv)
	}
	SkipIfShort(t)
}

// PostgresDB returns the shared migrated PostgreSQL database with all tables emptied
func PostgresDB(t *testing.T) *database.DB {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()
	sharedOnce.Do(func() {
		sharedPostgres, sharedErr = StartPostgres(ctx)
	})
	if sharedErr != nil {
		t.Fatalf("failed to set up postgres container: %v", sharedErr)
	}

	if err := sharedPostgres.Reset(ctx); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
	return sharedPostgres.DB
}
