// Package eventlog keeps an append-only audit trail of domain events. Appends run
// inside the caller's transaction so an event is recorded if and only if the
// state change it describes is committed.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rentvideo/internal/database"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidVersion is returned for a negative expected version.
var ErrInvalidVersion = errors.New("invalid version number")

// Aggregate types.
const (
	AggregateVideo  = "video"
	AggregateUser   = "user"
	AggregateRental = "rental"
)

// Event is one recorded state change of an aggregate.
type Event struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// New builds an event with a JSON-encoded payload.
func New(eventType string, payload any) (Event, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{EventType: eventType, EventData: data}, nil
}

type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   uuid.UUID `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     string    `db:"event_data"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// Log appends and loads events.
type Log struct {
	tracer trace.Tracer
	now    func() time.Time
}

// NewLog creates an event log.
func NewLog() *Log {
	return &Log{
		tracer: otel.Tracer("rentvideo/eventlog"),
		now:    time.Now,
	}
}

// Append records events for an aggregate whose last recorded version must equal
// expectedVersion. A mismatch, or a concurrent writer winning the race on the
// (aggregate_id, version) key, yields database.ErrConcurrencyConflict.
func (l *Log) Append(ctx context.Context, q sqlx.ExtContext, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events ...Event) error {
	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	var currentVersion int
	err := sqlx.GetContext(ctx, q, &currentVersion, q.Rebind(`
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = ?
	`), aggregateID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return database.ErrConcurrencyConflict
	}

	insert := q.Rebind(`
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, event := range events {
		version := expectedVersion + i + 1
		_, err := q.ExecContext(ctx, insert,
			aggregateID,
			aggregateType,
			event.EventType,
			string(event.EventData),
			version,
			l.now().UTC(),
		)
		if err != nil {
			err = database.Classify(err)
			if errors.Is(err, database.ErrUniqueViolation) {
				return database.ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	return nil
}

// Load returns the events of an aggregate ordered by version.
func (l *Log) Load(ctx context.Context, q sqlx.ExtContext, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var rows []eventRow
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_id = ?
		ORDER BY version ASC
	`), aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, Event{
			ID:            r.ID,
			AggregateID:   r.AggregateID,
			AggregateType: r.AggregateType,
			EventType:     r.EventType,
			EventData:     json.RawMessage(r.EventData),
			Version:       r.Version,
			CreatedAt:     r.CreatedAt,
		})
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
