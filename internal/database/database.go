// Package database opens the SQL store shared by the catalog, account and rental
// packages and runs units of work in transactions.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite"
)

// ErrConcurrencyConflict is the only error WithTx retries.
var ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config describes how to reach the database.
type Config struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// DB wraps a sqlx handle with transaction helpers.
type DB struct {
	*sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
	retry  []RetryOption
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger, opts ...RetryOption) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverPGX, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one connection serializes writers and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return &DB{
		DB:     db,
		logger: logger.Named("database"),
		tracer: otel.Tracer("rentvideo/database"),
		retry:  opts,
	}, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

// IsPostgres reports whether q talks to a Postgres server.
func IsPostgres(q sqlx.ExtContext) bool {
	d := q.DriverName()
	return d == DriverPostgres || d == DriverPGX
}

// ForUpdate returns the row-locking suffix for SELECTs that precede a write.
// SQLite needs none since it allows a single writer.
func ForUpdate(q sqlx.ExtContext) string {
	if IsPostgres(q) {
		return " FOR UPDATE"
	}
	return ""
}

// TxFunc is a unit of work.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// WithTx runs fn inside a transaction. Concurrency conflicts roll the whole unit
// back and run it again with backoff; any other error is returned as is.
func (db *DB) WithTx(ctx context.Context, name string, fn TxFunc) error {
	ctx, span := db.tracer.Start(ctx, "database.tx", trace.WithAttributes(
		attribute.String("tx.name", name),
	))
	defer span.End()

	attempts := 0
	err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		attempts++
		return db.runTx(ctx, fn)
	}, db.retry...)

	span.SetAttributes(attribute.Int("tx.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrConcurrencyConflict) {
			db.logger.Warn("transaction gave up after conflicts",
				zap.String("tx", name), zap.Int("attempts", attempts))
		}
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn TxFunc) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", Classify(err))
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return Classify(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", Classify(err))
	}
	return nil
}
