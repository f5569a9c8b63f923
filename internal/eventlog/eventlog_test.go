package eventlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentvideo/internal/database"
	"rentvideo/internal/database/dbtest"
)

type testEvent struct {
	Message string `json:"message"`
}

func mustEvent(t testing.TB, msg string) Event {
	t.Helper()
	e, err := New("TestEvent", testEvent{Message: msg})
	require.NoError(t, err)
	return e
}

func TestAppendAndLoad(t *testing.T) {
	db := dbtest.New(t)
	log := NewLog()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, log.Append(ctx, db, id, AggregateVideo, 0, mustEvent(t, "one"), mustEvent(t, "two")))
	require.NoError(t, log.Append(ctx, db, id, AggregateVideo, 2, mustEvent(t, "three")))

	events, err := log.Load(ctx, db, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
		assert.Equal(t, id, e.AggregateID)
		assert.Equal(t, AggregateVideo, e.AggregateType)
	}
	assert.JSONEq(t, `{"message":"three"}`, string(events[2].EventData))
}

func TestAppendVersionMismatch(t *testing.T) {
	db := dbtest.New(t)
	log := NewLog()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, log.Append(ctx, db, id, AggregateRental, 0, mustEvent(t, "first")))

	err := log.Append(ctx, db, id, AggregateRental, 0, mustEvent(t, "stale"))
	assert.ErrorIs(t, err, database.ErrConcurrencyConflict)

	err = log.Append(ctx, db, id, AggregateRental, -1, mustEvent(t, "bad"))
	assert.ErrorIs(t, err, ErrInvalidVersion)

	events, err := log.Load(ctx, db, id)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAppendRollsBackWithTransaction(t *testing.T) {
	db := dbtest.New(t)
	log := NewLog()
	ctx := context.Background()
	id := uuid.New()

	boom := fmt.Errorf("boom")
	err := db.WithTx(ctx, "test", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := log.Append(ctx, tx, id, AggregateUser, 0, mustEvent(t, "discarded")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	events, err := log.Load(ctx, db, id)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func BenchmarkAppendEvents(b *testing.B) {
	db := dbtest.New(b)
	log := NewLog()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		event := mustEvent(b, fmt.Sprintf("event %d", i))
		b.StartTimer()

		if err := log.Append(ctx, db, uuid.New(), AggregateVideo, 0, event); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	db := dbtest.New(b)
	log := NewLog()
	ctx := context.Background()

	id := uuid.New()
	for i := 0; i < 10; i++ {
		if err := log.Append(ctx, db, id, AggregateVideo, i, mustEvent(b, fmt.Sprintf("event %d", i))); err != nil {
			b.Fatalf("failed to set up events: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := log.Load(ctx, db, id); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}
