package account

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

const userColumns = `id, username, password_hash, password_salt, full_name, email, phone_number,
	role, active, version, created_at, updated_at`

// Repository reads and writes user rows on the handle it is given.
type Repository struct{}

// NewRepository creates a user repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert stores a new user. Duplicate usernames or emails fail with apperr.ErrConflict.
func (r *Repository) Insert(ctx context.Context, q sqlx.ExtContext, u *User) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :password_hash, :password_salt, :full_name, :email, :phone_number,
			:role, :active, :version, :created_at, :updated_at)
	`, u)
	if err != nil {
		return fmt.Errorf("insert user: %w", database.Classify(err))
	}
	return nil
}

// GetByUsername loads a user by username.
func (r *Repository) GetByUsername(ctx context.Context, q sqlx.ExtContext, username string, lock bool) (*User, error) {
	return r.getBy(ctx, q, "username", username, lock)
}

// GetByID loads a user by id.
func (r *Repository) GetByID(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, q, "id", id, false)
}

func (r *Repository) getBy(ctx context.Context, q sqlx.ExtContext, column string, value interface{}, lock bool) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	if lock {
		query += database.ForUpdate(q)
	}

	u := &User{}
	if err := sqlx.GetContext(ctx, q, u, q.Rebind(query), value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %v", apperr.ErrNotFound, value)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UsernameTaken reports whether any account uses username.
func (r *Repository) UsernameTaken(ctx context.Context, q sqlx.ExtContext, username string) (bool, error) {
	return r.exists(ctx, q, `SELECT COUNT(*) FROM users WHERE username = ?`, username)
}

// EmailTaken reports whether an account other than except uses email.
func (r *Repository) EmailTaken(ctx context.Context, q sqlx.ExtContext, email string, except uuid.UUID) (bool, error) {
	return r.exists(ctx, q, `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?) AND id <> ?`, email, except)
}

func (r *Repository) exists(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return n > 0, nil
}

// UpdateProfile writes the profile fields if the stored version still equals u.Version-1.
func (r *Repository) UpdateProfile(ctx context.Context, q sqlx.ExtContext, u *User) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE users
		SET full_name = ?, email = ?, phone_number = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`), u.FullName, u.Email, u.PhoneNumber, u.Version, u.UpdatedAt, u.ID, u.Version-1)
	if err != nil {
		return fmt.Errorf("update user: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n != 1 {
		return database.ErrConcurrencyConflict
	}
	return nil
}

// List returns every user ordered by username.
func (r *Repository) List(ctx context.Context, q sqlx.ExtContext) ([]*User, error) {
	users := []*User{}
	if err := sqlx.SelectContext(ctx, q, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context, q sqlx.ExtContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
