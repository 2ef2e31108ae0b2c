package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config selects and tunes the SQL database.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	// SlowQueryThreshold logs statements slower than this at warn. Zero disables it.
	SlowQueryThreshold time.Duration
}

// Open connects to the configured database and returns a Store on it.
func Open(cfg Config, opts ...Option) (*Store, error) {
	var (
		driverName string
		dialect    schema.Dialect
	)
	switch cfg.Driver {
	case DriverSQLite:
		driverName, dialect = "sqlite3", sqlitedialect.New()
	case DriverPostgres:
		driverName, dialect = "postgres", pgdialect.New()
	case DriverMySQL:
		driverName, dialect = "mysql", mysqldialect.New()
	default:
		return nil, fmt.Errorf("bunstore: unsupported driver %q", cfg.Driver)
	}

	sqldb, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("bunstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, dialect)
	s := New(db, opts...)
	db.AddQueryHook(&queryLogger{logger: s.logger, threshold: cfg.SlowQueryThreshold})
	return s, nil
}

// queryLogger reports failed and slow statements.
type queryLogger struct {
	logger    zerolog.Logger
	threshold time.Duration
}

var _ bun.QueryHook = (*queryLogger)(nil)

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		h.logger.Error().Err(event.Err).Str("op", event.Operation()).Dur("elapsed", elapsed).Str("query", event.Query).Msg("query failed")
	case h.threshold > 0 && elapsed > h.threshold:
		h.logger.Warn().Str("op", event.Operation()).Dur("elapsed", elapsed).Str("query", event.Query).Msg("slow query")
	default:
		h.logger.Debug().Str("op", event.Operation()).Dur("elapsed", elapsed).Msg("query")
	}
}
