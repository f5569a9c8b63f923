package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
	"rentvideo/internal/database/dbtest"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := database.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return database.ErrConcurrencyConflict
		}
		return nil
	}, database.WithBaseDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := database.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := database.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
		calls++
		return database.ErrConcurrencyConflict
	}, database.WithMaxAttempts(3), database.WithBaseDelay(0))

	assert.ErrorIs(t, err, database.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryRejectsBadOptions(t *testing.T) {
	noop := func(context.Context) error { return nil }

	err := database.RetryWithExponentialBackoff(context.Background(), noop, database.WithMaxAttempts(0))
	assert.ErrorIs(t, err, database.ErrInvalidMaxAttempts)

	err = database.RetryWithExponentialBackoff(context.Background(), noop, database.WithBaseDelay(-time.Second))
	assert.ErrorIs(t, err, database.ErrNegativeBaseDelay)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := database.RetryWithExponentialBackoff(ctx, func(context.Context) error {
		return database.ErrConcurrencyConflict
	}, database.WithBaseDelay(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTxRetriesConflicts(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{Driver: database.DriverSQLite},
		zaptest.NewLogger(t), database.WithBaseDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	attempts := 0
	err = db.WithTx(context.Background(), "flaky", func(ctx context.Context, tx *sqlx.Tx) error {
		attempts++
		if attempts == 1 {
			return database.ErrConcurrencyConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestUniqueViolationIsConflict(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(id, username, email string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, password_salt, email, role, created_at, updated_at)
			VALUES (?, ?, 'x', 'x', ?, 'USER', ?, ?)
		`, id, username, email, now, now)
		return database.Classify(err)
	}

	require.NoError(t, insert("00000000-0000-0000-0000-000000000001", "neo", "neo@example.com"))
	err := insert("00000000-0000-0000-0000-000000000002", "neo", "other@example.com")
	assert.ErrorIs(t, err, database.ErrUniqueViolation)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestClassifyPassesThrough(t *testing.T) {
	assert.NoError(t, database.Classify(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, database.Classify(plain))

	wrapped := fmt.Errorf("wrap: %w", database.ErrConcurrencyConflict)
	assert.Equal(t, wrapped, database.Classify(wrapped))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open(context.Background(), database.Config{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPostgresUniqueViolationIsConflict(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(id, username, email string) error {
		_, err := db.ExecContext(ctx, db.Rebind(`
			INSERT INTO users (id, username, password_hash, password_salt, email, role, created_at, updated_at)
			VALUES (?, ?, 'x', 'x', ?, 'USER', ?, ?)
		`), id, username, email, now, now)
		return database.Classify(err)
	}

	require.NoError(t, insert("00000000-0000-0000-0000-000000000001", "trinity", "trinity@example.com"))
	err := insert("00000000-0000-0000-0000-000000000002", "morpheus", "trinity@example.com")
	assert.ErrorIs(t, err, database.ErrUniqueViolation)
	assert.True(t, database.IsPostgres(db))
}
