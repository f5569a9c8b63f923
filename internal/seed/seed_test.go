package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"rentvideo/internal/account"
	"rentvideo/internal/catalog"
	"rentvideo/internal/database/dbtest"
	"rentvideo/internal/eventlog"
)

func TestRunIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	logger := zaptest.NewLogger(t)
	events := eventlog.NewLog()
	accounts := account.NewService(db, account.NewRepository(), events, logger, account.WithRateLimit(rate.Inf, 0))
	videos := catalog.NewService(db, catalog.NewRepository(), events, logger)
	ctx := context.Background()

	data, err := Default()
	require.NoError(t, err)

	res, err := Run(ctx, data, accounts, videos, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 2, Videos: 5}, res)

	admin, err := accounts.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, admin.Role)

	user, err := accounts.Authenticate(ctx, "user", "user123")
	require.NoError(t, err)
	assert.Equal(t, account.RoleUser, user.Role)

	crime, err := videos.ListVideos(ctx, catalog.Filter{Genre: "Crime"})
	require.NoError(t, err)
	require.Len(t, crime, 2)
	assert.Equal(t, "Pulp Fiction", crime[0].Title)
	assert.Equal(t, "3.49", crime[0].RentalPricePerDay.StringFixed(2))
	assert.Equal(t, 2, crime[0].AvailableCopies)

	res, err = Run(ctx, data, accounts, videos, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
