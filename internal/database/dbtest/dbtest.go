// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rentvideo/internal/database"
)

// New returns a migrated in-memory SQLite database that is closed when the
// test ends.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{Driver: database.DriverSQLite}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// NewPostgres connects to the database named by RENTVIDEO_TEST_POSTGRES,
// migrates it and empties every table. The test is skipped when the variable
// is unset or the server cannot be reached.
func NewPostgres(t testing.TB) *database.DB {
	t.Helper()

	dsn := os.Getenv("RENTVIDEO_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("RENTVIDEO_TEST_POSTGRES not set")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: database.DriverPostgres, DSN: dsn}, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("could not connect to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, "TRUNCATE TABLE events, rentals, videos, users CASCADE")
	require.NoError(t, err)
	return db
}
