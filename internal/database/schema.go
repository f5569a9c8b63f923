package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Money columns are TEXT on SQLite so decimal values survive without float affinity.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		password_salt TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		director TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		release_year INT NOT NULL,
		duration_minutes INT NOT NULL,
		rental_price_per_day NUMERIC(12,2) NOT NULL,
		total_copies INT NOT NULL CHECK (total_copies >= 1),
		available_copies INT NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
		cover_image_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS videos_genre_idx ON videos (genre)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		video_id UUID NOT NULL REFERENCES videos (id),
		rental_date DATE NOT NULL,
		due_date DATE NOT NULL,
		return_date DATE,
		rental_price NUMERIC(12,2) NOT NULL,
		late_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rentals_user_idx ON rentals (user_id)`,
	`CREATE INDEX IF NOT EXISTS rentals_video_status_idx ON rentals (video_id, status)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		aggregate_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data JSONB NOT NULL,
		version INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (aggregate_id, version)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		password_salt TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		director TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		release_year INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		rental_price_per_day TEXT NOT NULL,
		total_copies INTEGER NOT NULL CHECK (total_copies >= 1),
		available_copies INTEGER NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
		cover_image_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS videos_genre_idx ON videos (genre)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id),
		video_id TEXT NOT NULL REFERENCES videos (id),
		rental_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		return_date TEXT,
		rental_price TEXT NOT NULL,
		late_fee TEXT NOT NULL DEFAULT '0',
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rentals_user_idx ON rentals (user_id)`,
	`CREATE INDEX IF NOT EXISTS rentals_video_status_idx ON rentals (video_id, status)`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		aggregate_id TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (aggregate_id, version)
	)`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if IsPostgres(db) {
		stmts = postgresSchema
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}

	db.logger.Info("schema migrated", zap.String("driver", db.DriverName()), zap.Int("statements", len(stmts)))
	return nil
}
