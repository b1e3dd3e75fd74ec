// Package dbtest opens throwaway sqlite stores for package tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"event-ticketing/internal/config"
	"event-ticketing/internal/database"
	"event-ticketing/internal/logger"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewSQLite returns a migrated in-memory database private to the test.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_") + "_" + uuid.NewString()
	cfg := config.DatabaseConfig{
		Driver:         database.DriverSQLite,
		URL:            fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		ConnectRetries: 1,
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg, logger.NewDiscard())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.CreateSchema(ctx, db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
