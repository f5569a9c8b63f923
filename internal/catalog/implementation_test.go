package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
	"rentvideo/internal/database/dbtest"
	"rentvideo/internal/eventlog"
)

type fixture struct {
	db      *database.DB
	repo    *Repository
	events  *eventlog.Log
	service Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	repo := NewRepository()
	events := eventlog.NewLog()
	return &fixture{
		db:      db,
		repo:    repo,
		events:  events,
		service: NewService(db, repo, events, zaptest.NewLogger(t)),
	}
}

func videoInput(title, genre string, copies int) VideoInput {
	return VideoInput{
		Title:             title,
		Description:       "A film",
		Director:          "Someone",
		Genre:             genre,
		ReleaseYear:       1999,
		DurationMinutes:   120,
		RentalPricePerDay: decimal.RequireFromString("3.99"),
		TotalCopies:       copies,
	}
}

// insertOpenRental writes an ACTIVE rental row for video directly.
func (f *fixture) insertOpenRental(t *testing.T, videoID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	_, err := f.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, password_salt, email, role, created_at, updated_at)
		VALUES (?, ?, 'x', 'x', ?, 'USER', ?, ?)
	`, userID, "u-"+userID.String(), userID.String()+"@example.com", now, now)
	require.NoError(t, err)

	_, err = f.db.ExecContext(ctx, `
		INSERT INTO rentals (id, user_id, video_id, rental_date, due_date, rental_price, total_amount, status, created_at)
		VALUES (?, ?, ?, '2024-01-01', '2024-01-04', '3.00', '3.00', 'ACTIVE', ?)
	`, uuid.New(), userID, videoID, now)
	require.NoError(t, err)
}

func TestAddVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("The Matrix", "Sci-Fi", 3))
	require.NoError(t, err)
	assert.Equal(t, 3, video.TotalCopies)
	assert.Equal(t, 3, video.AvailableCopies)
	assert.True(t, video.Available())
	assert.Equal(t, 1, video.Version)

	got, err := f.service.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", got.Title)
	assert.True(t, decimal.RequireFromString("3.99").Equal(got.RentalPricePerDay))

	history, err := f.events.Load(ctx, f.db, video.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "VideoAdded", history[0].EventType)
}

func TestAddVideoRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input func(in *VideoInput)
	}{
		{"missing title", func(in *VideoInput) { in.Title = "" }},
		{"zero copies", func(in *VideoInput) { in.TotalCopies = 0 }},
		{"negative price", func(in *VideoInput) { in.RentalPricePerDay = decimal.NewFromInt(-1) }},
		{"old release year", func(in *VideoInput) { in.ReleaseYear = 1800 }},
		{"zero duration", func(in *VideoInput) { in.DurationMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := videoInput("Alien", "Horror", 1)
			tt.input(&in)
			_, err := f.service.AddVideo(ctx, in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}

	count, err := f.service.CountVideos(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetVideoNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetVideo(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListVideosFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	matrix, err := f.service.AddVideo(ctx, videoInput("The Matrix", "Sci-Fi", 1))
	require.NoError(t, err)
	_, err = f.service.AddVideo(ctx, videoInput("Matrix Reloaded", "Sci-Fi", 2))
	require.NoError(t, err)
	_, err = f.service.AddVideo(ctx, videoInput("Toy Story", "Animation", 1))
	require.NoError(t, err)

	all, err := f.service.ListVideos(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byTitle, err := f.service.ListVideos(ctx, Filter{Title: "matrix"})
	require.NoError(t, err)
	assert.Len(t, byTitle, 2)

	byGenre, err := f.service.ListVideos(ctx, Filter{Genre: "Animation"})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "Toy Story", byGenre[0].Title)

	// title takes precedence over genre
	both, err := f.service.ListVideos(ctx, Filter{Title: "toy", Genre: "Sci-Fi"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Toy Story", both[0].Title)

	ok, err := f.repo.TakeCopy(ctx, f.db, matrix.ID)
	require.NoError(t, err)
	require.True(t, ok)

	available, err := f.service.ListVideos(ctx, Filter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)
	for _, v := range available {
		assert.NotEqual(t, matrix.ID, v.ID)
	}
}

func TestUpdateVideoShiftsAvailableCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("Heat", "Crime", 3))
	require.NoError(t, err)

	ok, err := f.repo.TakeCopy(ctx, f.db, video.ID)
	require.NoError(t, err)
	require.True(t, ok)

	in := videoInput("Heat", "Crime", 5)
	in.RentalPricePerDay = decimal.RequireFromString("4.50")
	updated, err := f.service.UpdateVideo(ctx, video.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 4, updated.AvailableCopies)

	in.TotalCopies = 1
	updated, err = f.service.UpdateVideo(ctx, video.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.TotalCopies)
	assert.Equal(t, 0, updated.AvailableCopies)
	assert.False(t, updated.Available())

	history, err := f.events.Load(ctx, f.db, video.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestUpdateVideoBelowRentedOutCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("Heat", "Crime", 2))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		ok, err := f.repo.TakeCopy(ctx, f.db, video.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, err = f.service.UpdateVideo(ctx, video.ID, videoInput("Heat", "Crime", 1))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.service.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCopies)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestRemoveVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("Jaws", "Thriller", 1))
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveVideo(ctx, video.ID))

	_, err = f.service.GetVideo(ctx, video.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := f.service.ListVideos(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = f.service.RemoveVideo(ctx, video.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveVideoWithOutstandingRental(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("Jaws", "Thriller", 2))
	require.NoError(t, err)
	f.insertOpenRental(t, video.ID)

	err = f.service.RemoveVideo(ctx, video.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.service.GetVideo(ctx, video.ID)
	assert.NoError(t, err)
}

func TestTakeCopyNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.service.AddVideo(ctx, videoInput("Up", "Animation", 1))
	require.NoError(t, err)

	ok, err := f.repo.TakeCopy(ctx, f.db, video.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.TakeCopy(ctx, f.db, video.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.repo.PutBackCopy(ctx, f.db, video.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.PutBackCopy(ctx, f.db, video.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVideoJSONIncludesAvailability(t *testing.T) {
	v := Video{ID: uuid.New(), Title: "Up", TotalCopies: 2, AvailableCopies: 0}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["available"])
	assert.Equal(t, "Up", decoded["title"])
	assert.NotContains(t, decoded, "Status")
}
