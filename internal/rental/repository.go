package rental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
)

const rentalSelect = `
	SELECT r.id, r.user_id, u.username, r.video_id, v.title AS video_title,
		v.rental_price_per_day AS price_per_day,
		r.rental_date, r.due_date, r.return_date, r.rental_price, r.late_fee, r.total_amount,
		r.status, r.version, r.created_at
	FROM rentals r
	JOIN users u ON u.id = r.user_id
	JOIN videos v ON v.id = r.video_id`

// Repository reads and writes rental rows on the handle it is given.
type Repository struct{}

// NewRepository creates a rental repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert stores a new rental.
func (r *Repository) Insert(ctx context.Context, q sqlx.ExtContext, rent *Rental) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO rentals (id, user_id, video_id, rental_date, due_date, return_date,
			rental_price, late_fee, total_amount, status, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		rent.ID, rent.UserID, rent.VideoID, rent.RentalDate, rent.DueDate, rent.ReturnDate,
		rent.RentalPrice.StringFixed(2), rent.LateFee.StringFixed(2), rent.TotalAmount.StringFixed(2),
		rent.Status, rent.Version, rent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rental: %w", database.Classify(err))
	}
	return nil
}

// Get loads a rental with its user and video names. With lock set the rental
// row stays locked until the surrounding transaction ends.
func (r *Repository) Get(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, lock bool) (*Rental, error) {
	query := rentalSelect + ` WHERE r.id = ?`
	if lock && database.IsPostgres(q) {
		query += ` FOR UPDATE OF r`
	}

	rent := &Rental{}
	if err := sqlx.GetContext(ctx, q, rent, q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rental with ID %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return rent, nil
}

// SaveReturn writes the return fields if the stored version still equals
// rent.Version-1.
func (r *Repository) SaveReturn(ctx context.Context, q sqlx.ExtContext, rent *Rental) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE rentals
		SET return_date = ?, late_fee = ?, total_amount = ?, status = ?, version = ?
		WHERE id = ? AND version = ?
	`),
		rent.ReturnDate, rent.LateFee.StringFixed(2), rent.TotalAmount.StringFixed(2), rent.Status, rent.Version,
		rent.ID, rent.Version-1,
	)
	if err != nil {
		return fmt.Errorf("save return: %w", database.Classify(err))
	}
	return expectOneRow(res)
}

// MarkOverdue moves one ACTIVE rental to OVERDUE. It reports false when the
// rental was no longer ACTIVE.
func (r *Repository) MarkOverdue(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE rentals
		SET status = ?, version = version + 1
		WHERE id = ? AND status = ?
	`), StatusOverdue, id, StatusActive)
	if err != nil {
		return false, fmt.Errorf("mark overdue: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark overdue: %w", err)
	}
	return n == 1, nil
}

type overdueCandidate struct {
	ID      uuid.UUID `db:"id"`
	DueDate Date      `db:"due_date"`
	Version int       `db:"version"`
}

// ActivePastDue returns ACTIVE rentals due before asOf.
func (r *Repository) ActivePastDue(ctx context.Context, q sqlx.ExtContext, asOf Date) ([]overdueCandidate, error) {
	var rows []overdueCandidate
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
		SELECT id, due_date, version FROM rentals
		WHERE status = ? AND due_date < ?
		ORDER BY due_date, id
	`), StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("find past due rentals: %w", err)
	}
	return rows, nil
}

// ListAll returns every rental, newest first.
func (r *Repository) ListAll(ctx context.Context, q sqlx.ExtContext) ([]*Rental, error) {
	return r.list(ctx, q, "")
}

// ListByUser returns the rentals of one user, newest first.
func (r *Repository) ListByUser(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID) ([]*Rental, error) {
	return r.list(ctx, q, ` WHERE r.user_id = ?`, userID)
}

// ListByStatus returns the rentals in one state, newest first.
func (r *Repository) ListByStatus(ctx context.Context, q sqlx.ExtContext, status Status) ([]*Rental, error) {
	return r.list(ctx, q, ` WHERE r.status = ?`, status)
}

func (r *Repository) list(ctx context.Context, q sqlx.ExtContext, where string, args ...interface{}) ([]*Rental, error) {
	rentals := []*Rental{}
	query := rentalSelect + where + ` ORDER BY r.created_at DESC, r.id`
	if err := sqlx.SelectContext(ctx, q, &rentals, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return rentals, nil
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
