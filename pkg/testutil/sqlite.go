package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/logger"
)

var sqliteSeq atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
// It is closed when the test ends.
func NewSQLiteDB(t *testing.T) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, sqliteSeq.Add(1)),
	}

	db, err := database.New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return db
}
