package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var retryDelay = 2 * time.Second

// Open connects to the configured store, retrying the ping the way the
// service did against postgres at startup.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	driverName := ""
	switch cfg.Driver {
	case DriverPostgres:
		driverName = "postgres"
	case DriverSQLite:
		driverName = sqliteshim.ShimName
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < retries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, retries))
		sqldb, err = sql.Open(driverName, cfg.URL)
		if err == nil {
			if err = sqldb.PingContext(ctx); err == nil {
				break
			}
			sqldb.Close()
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, retries, err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite allows one writer; a single connection keeps conditional
		// updates serialized instead of failing with SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", "✅ SQLite connection successful")
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Prepare brings the schema up to date: versioned migrations on postgres,
// model-derived tables on sqlite.
func Prepare(ctx context.Context, db *bun.DB, driver string, log *logger.Logger) error {
	if driver == DriverPostgres {
		return migrations.NewRunner(db, log).RunMigrations()
	}
	return CreateSchema(ctx, db)
}

// CreateSchema creates the events and tickets tables from the bun models.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{(*models.Event)(nil), (*models.Ticket)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := map[string]string{
		"tickets_event_id_idx": "event_id",
		"tickets_status_idx":   "status",
	}
	for name, column := range indexes {
		_, err := db.NewCreateIndex().
			Model((*models.Ticket)(nil)).
			Index(name).
			Column(column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err comes from a unique constraint,
// on either postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
