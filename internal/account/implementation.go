// internal/account/implementation.go
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
	"rentvideo/internal/validation"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid username or password", apperr.ErrUnauthorized)

// Option configures the account service.
type Option func(*service)

// WithRateLimit throttles registration and login attempts.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *service) {
		s.rateLimiter = rate.NewLimiter(limit, burst)
	}
}

// service implements the Service interface.
type service struct {
	db          *database.DB
	repo        *Repository
	events      *eventlog.Log
	validator   *validation.Validator
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewService creates a new account service instance.
func NewService(db *database.DB, repo *Repository, events *eventlog.Log, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		db:          db,
		repo:        repo,
		events:      events,
		validator:   validation.New(),
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
		logger:      logger.Named("account"),
		tracer:      otel.Tracer("rentvideo/account"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a USER account.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, apperr.ErrRateLimited
	}
	return s.CreateWithRole(ctx, in, RoleUser)
}

// CreateWithRole creates an active account with the given role.
func (s *service) CreateWithRole(ctx context.Context, in RegisterInput, role Role) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "account.create",
		trace.WithAttributes(attribute.String("user.role", string(role))))
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	passwordHash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: passwordHash,
		PasswordSalt: salt,
		FullName:     in.FullName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		Role:         role,
		Active:       true,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	event, err := eventlog.New("UserRegistered", UserRegisteredEvent{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, "account.create", func(ctx context.Context, tx *sqlx.Tx) error {
		taken, err := s.repo.UsernameTaken(ctx, tx, user.Username)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: username %q is already taken", apperr.ErrConflict, user.Username)
		}

		taken, err = s.repo.EmailTaken(ctx, tx, user.Email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email %q is already registered", apperr.ErrConflict, user.Email)
		}

		if err := s.repo.Insert(ctx, tx, user); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, user.ID, eventlog.AggregateUser, 0, event)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.logger.Debug("registration rejected", zap.String("username", user.Username), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Stringer("user_id", user.ID),
		zap.String("username", user.Username), zap.String("role", string(role)))
	return user, nil
}

// Authenticate verifies a user's credentials and returns the user if successful.
func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, apperr.ErrRateLimited
	}

	ctx, span := s.tracer.Start(ctx, "account.authenticate")
	defer span.End()

	user, err := s.repo.GetByUsername(ctx, s.db, username, false)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		s.logger.Debug("login rejected", zap.String("username", username))
		return nil, errInvalidCredentials
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: account is disabled", apperr.ErrUnauthorized)
	}

	return user, nil
}

// GetByUsername retrieves a user by username.
func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "account.get_by_username")
	defer span.End()

	return s.repo.GetByUsername(ctx, s.db, username, false)
}

// UpdateProfile applies the non-nil fields of in. A changed email must not
// belong to another account.
func (s *service) UpdateProfile(ctx context.Context, username string, in UpdateProfileInput) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "account.update_profile")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	var updated *User
	err := s.db.WithTx(ctx, "account.update_profile", func(ctx context.Context, tx *sqlx.Tx) error {
		user, err := s.repo.GetByUsername(ctx, tx, username, true)
		if err != nil {
			return err
		}

		if in.FullName != nil {
			user.FullName = *in.FullName
		}
		if in.PhoneNumber != nil {
			user.PhoneNumber = *in.PhoneNumber
		}
		if in.Email != nil {
			email := strings.TrimSpace(*in.Email)
			if !strings.EqualFold(email, user.Email) {
				taken, err := s.repo.EmailTaken(ctx, tx, email, user.ID)
				if err != nil {
					return err
				}
				if taken {
					return fmt.Errorf("%w: email %q is already registered", apperr.ErrConflict, email)
				}
			}
			user.Email = email
		}

		user.Version++
		user.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateProfile(ctx, tx, user); err != nil {
			return err
		}

		event, err := eventlog.New("UserProfileUpdated", UserProfileUpdatedEvent{
			ID:          user.ID,
			FullName:    user.FullName,
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
		})
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, user.ID, eventlog.AggregateUser, user.Version-1, event); err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("username", username))
	return updated, nil
}

// ListUsers returns every account.
func (s *service) ListUsers(ctx context.Context) ([]*User, error) {
	ctx, span := s.tracer.Start(ctx, "account.list_users")
	defer span.End()

	return s.repo.List(ctx, s.db)
}

// CountUsers returns the number of accounts.
func (s *service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.Count(ctx, s.db)
}
