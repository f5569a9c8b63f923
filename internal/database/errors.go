package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"rentvideo/internal/apperr"
)

// ErrUniqueViolation marks an insert or update rejected by a unique constraint.
// It is an apperr.ErrConflict.
var ErrUniqueViolation = fmt.Errorf("%w: unique constraint violation", apperr.ErrConflict)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Classify tags driver errors with ErrUniqueViolation or ErrConcurrencyConflict
// so callers can test them with errors.Is regardless of the driver in use.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrConcurrencyConflict) {
		return err
	}

	switch code := sqlState(err); code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
		}
	}

	return err
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
