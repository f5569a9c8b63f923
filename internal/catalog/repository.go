package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
)

const videoColumns = `id, title, description, director, genre, release_year, duration_minutes,
	rental_price_per_day, total_copies, available_copies, cover_image_url, status, version,
	created_at, updated_at`

var videoColumnList = []interface{}{
	"id", "title", "description", "director", "genre", "release_year", "duration_minutes",
	"rental_price_per_day", "total_copies", "available_copies", "cover_image_url", "status", "version",
	"created_at", "updated_at",
}

// Repository reads and writes video rows. Every method takes the handle to run
// on so the rental engine can use it inside its own transaction.
type Repository struct {
	now func() time.Time
}

// NewRepository creates a video repository.
func NewRepository() *Repository {
	return &Repository{now: time.Now}
}

// Insert stores a new video.
func (r *Repository) Insert(ctx context.Context, q sqlx.ExtContext, v *Video) error {
	query := q.Rebind(`
		INSERT INTO videos (` + videoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		v.ID, v.Title, v.Description, v.Director, v.Genre, v.ReleaseYear, v.DurationMinutes,
		v.RentalPricePerDay.StringFixed(2), v.TotalCopies, v.AvailableCopies, v.CoverImageURL, v.Status, v.Version,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", database.Classify(err))
	}
	return nil
}

// Get loads an active video. With lock set the row stays locked until the
// surrounding transaction ends.
func (r *Repository) Get(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, lock bool) (*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ? AND status = ?`
	if lock {
		query += database.ForUpdate(q)
	}

	v := &Video{}
	if err := sqlx.GetContext(ctx, q, v, q.Rebind(query), id, StatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: video with ID %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

// List returns active videos matching the filter, ordered by title.
func (r *Repository) List(ctx context.Context, q sqlx.ExtContext, f Filter) ([]*Video, error) {
	ds := goqu.Dialect(goquDialect(q)).
		From("videos").
		Select(videoColumnList...).
		Where(goqu.C("status").Eq(StatusActive)).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())

	switch {
	case f.Title != "":
		pattern := "%" + strings.ToLower(f.Title) + "%"
		ds = ds.Where(goqu.Func("LOWER", goqu.C("title")).Like(pattern))
	case f.Genre != "":
		ds = ds.Where(goqu.C("genre").Eq(f.Genre))
	case f.AvailableOnly:
		ds = ds.Where(goqu.C("available_copies").Gt(0))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build video query: %w", err)
	}

	videos := []*Video{}
	if err := sqlx.SelectContext(ctx, q, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// Update writes v back if the stored version still equals v.Version-1.
func (r *Repository) Update(ctx context.Context, q sqlx.ExtContext, v *Video) error {
	query := q.Rebind(`
		UPDATE videos
		SET title = ?, description = ?, director = ?, genre = ?, release_year = ?, duration_minutes = ?,
			rental_price_per_day = ?, total_copies = ?, available_copies = ?, cover_image_url = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`)
	res, err := q.ExecContext(ctx, query,
		v.Title, v.Description, v.Director, v.Genre, v.ReleaseYear, v.DurationMinutes,
		v.RentalPricePerDay.StringFixed(2), v.TotalCopies, v.AvailableCopies, v.CoverImageURL,
		v.Version, v.UpdatedAt,
		v.ID, v.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", database.Classify(err))
	}
	return expectOneRow(res)
}

// Retire hides the video from the catalog if the stored version still equals version.
func (r *Repository) Retire(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, version int) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE videos
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`), StatusRetired, r.now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("retire video: %w", database.Classify(err))
	}
	return expectOneRow(res)
}

// TakeCopy decrements the available copies by one. The guard and the decrement
// are one statement, so two writers can never both take the last copy.
// It reports false when no copy was left.
func (r *Repository) TakeCopy(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE videos
		SET available_copies = available_copies - 1, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND available_copies > 0
	`), r.now().UTC(), id, StatusActive)
	if err != nil {
		return false, fmt.Errorf("take copy: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("take copy: %w", err)
	}
	return n == 1, nil
}

// PutBackCopy increments the available copies by one, capped at the total.
// It reports false when the counter was already at the total. Retired videos
// are counted too so late returns still balance.
func (r *Repository) PutBackCopy(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE videos
		SET available_copies = available_copies + 1, version = version + 1, updated_at = ?
		WHERE id = ? AND available_copies < total_copies
	`), r.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("put back copy: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put back copy: %w", err)
	}
	return n == 1, nil
}

// OutstandingRentals counts rentals of the video that have not been returned.
func (r *Repository) OutstandingRentals(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`
		SELECT COUNT(*) FROM rentals WHERE video_id = ? AND status <> 'RETURNED'
	`), id)
	if err != nil {
		return 0, fmt.Errorf("count outstanding rentals: %w", err)
	}
	return n, nil
}

// Count returns the number of active videos.
func (r *Repository) Count(ctx context.Context, q sqlx.ExtContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM videos WHERE status = ?`), StatusActive); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return database.ErrConcurrencyConflict
	}
	return nil
}

func goquDialect(q sqlx.ExtContext) string {
	if database.IsPostgres(q) {
		return "postgres"
	}
	return "sqlite3"
}
