// internal/rental/implementation.go
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rentvideo/internal/account"
	"rentvideo/internal/apperr"
	"rentvideo/internal/catalog"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
)

// Option configures the rental service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLocation sets the time zone that decides which calendar day it is.
func WithLocation(loc *time.Location) Option {
	return func(s *service) { s.loc = loc }
}

// WithLateFeeRate sets the share of the daily price charged per day late.
func WithLateFeeRate(rate decimal.Decimal) Option {
	return func(s *service) { s.lateFeeRate = rate }
}

type metrics struct {
	checkedOut metric.Int64Counter
	returned   metric.Int64Counter
	rejected   metric.Int64Counter
	lateFee    metric.Float64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	var m metrics
	var err error
	if m.checkedOut, err = meter.Int64Counter("rentvideo.rentals.checked_out",
		metric.WithDescription("Rentals created")); err != nil {
		return nil, err
	}
	if m.returned, err = meter.Int64Counter("rentvideo.rentals.returned",
		metric.WithDescription("Rentals returned")); err != nil {
		return nil, err
	}
	if m.rejected, err = meter.Int64Counter("rentvideo.rentals.rejected",
		metric.WithDescription("Checkouts and returns rejected, by reason")); err != nil {
		return nil, err
	}
	if m.lateFee, err = meter.Float64Counter("rentvideo.rentals.late_fee",
		metric.WithDescription("Late fees charged"), metric.WithUnit("{currency}")); err != nil {
		return nil, err
	}
	return &m, nil
}

// service implements the Service interface.
type service struct {
	db          *database.DB
	rentals     *Repository
	videos      *catalog.Repository
	users       *account.Repository
	events      *eventlog.Log
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     *metrics
	now         func() time.Time
	loc         *time.Location
	lateFeeRate decimal.Decimal
}

// NewService creates a new rental service instance.
func NewService(
	db *database.DB,
	rentals *Repository,
	videos *catalog.Repository,
	users *account.Repository,
	events *eventlog.Log,
	logger *zap.Logger,
	opts ...Option,
) (Service, error) {
	m, err := newMetrics(otel.Meter("rentvideo/rental"))
	if err != nil {
		return nil, fmt.Errorf("create rental metrics: %w", err)
	}

	s := &service{
		db:          db,
		rentals:     rentals,
		videos:      videos,
		users:       users,
		events:      events,
		logger:      logger.Named("rental"),
		tracer:      otel.Tracer("rentvideo/rental"),
		metrics:     m,
		now:         time.Now,
		loc:         time.UTC,
		lateFeeRate: DefaultLateFeeRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Today returns the current calendar day in the configured time zone.
func (s *service) Today() Date {
	return DateOf(s.now(), s.loc)
}

// Checkout rents one copy of a video to the principal for rentalDays days.
// The inventory decrement, the ledger entry and its event commit together.
func (s *service) Checkout(ctx context.Context, p account.Principal, videoID uuid.UUID, rentalDays int) (*Rental, error) {
	ctx, span := s.tracer.Start(ctx, "rental.checkout", trace.WithAttributes(
		attribute.String("video.id", videoID.String()),
		attribute.Int("rental.days", rentalDays),
	))
	defer span.End()

	if rentalDays < 1 || rentalDays > MaxRentalDays {
		return nil, fmt.Errorf("%w: rental days must be between 1 and %d", apperr.ErrInvalidInput, MaxRentalDays)
	}

	today := s.Today()
	var created *Rental
	err := s.db.WithTx(ctx, "rental.checkout", func(ctx context.Context, tx *sqlx.Tx) error {
		user, err := s.users.GetByUsername(ctx, tx, p.Username, false)
		if err != nil {
			return err
		}

		video, err := s.videos.Get(ctx, tx, videoID, false)
		if err != nil {
			return err
		}
		if !video.Available() {
			return fmt.Errorf("%w: %q has no free copies", apperr.ErrVideoUnavailable, video.Title)
		}

		// the guard inside TakeCopy decides races for the last copy
		taken, err := s.videos.TakeCopy(ctx, tx, video.ID)
		if err != nil {
			return err
		}
		if !taken {
			return fmt.Errorf("%w: %q has no free copies", apperr.ErrVideoUnavailable, video.Title)
		}

		price := Price(video.RentalPricePerDay, rentalDays)
		rent := &Rental{
			ID:          uuid.New(),
			UserID:      user.ID,
			Username:    user.Username,
			VideoID:     video.ID,
			VideoTitle:  video.Title,
			RentalDate:  today,
			DueDate:     today.AddDays(rentalDays),
			RentalPrice: price,
			LateFee:     decimal.Zero,
			TotalAmount: price,
			Status:      StatusActive,
			Version:     1,
			CreatedAt:   s.now().UTC(),
			PricePerDay: video.RentalPricePerDay,
		}
		if err := s.rentals.Insert(ctx, tx, rent); err != nil {
			return err
		}

		event, err := eventlog.New("RentalCheckedOut", RentalCheckedOutEvent{
			RentalID:    rent.ID,
			UserID:      rent.UserID,
			VideoID:     rent.VideoID,
			RentalDate:  rent.RentalDate,
			DueDate:     rent.DueDate,
			RentalPrice: rent.RentalPrice,
		})
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, rent.ID, eventlog.AggregateRental, 0, event); err != nil {
			return err
		}

		created = rent
		return nil
	})
	if err != nil {
		s.reject(ctx, "checkout", err)
		return nil, err
	}

	s.metrics.checkedOut.Add(ctx, 1)
	span.SetAttributes(attribute.String("rental.id", created.ID.String()))
	s.logger.Info("video rented",
		zap.Stringer("rental_id", created.ID),
		zap.String("username", created.Username),
		zap.Stringer("video_id", created.VideoID),
		zap.Stringer("due_date", created.DueDate),
		zap.String("rental_price", created.RentalPrice.StringFixed(2)),
	)
	return created, nil
}

// Return closes a rental, charging a late fee for every day past the due date,
// and puts the copy back into inventory. Only the renter or an admin may return.
func (s *service) Return(ctx context.Context, p account.Principal, rentalID uuid.UUID) (*Rental, error) {
	ctx, span := s.tracer.Start(ctx, "rental.return",
		trace.WithAttributes(attribute.String("rental.id", rentalID.String())))
	defer span.End()

	today := s.Today()
	var returned *Rental
	err := s.db.WithTx(ctx, "rental.return", func(ctx context.Context, tx *sqlx.Tx) error {
		user, err := s.users.GetByUsername(ctx, tx, p.Username, false)
		if err != nil {
			return err
		}

		rent, err := s.rentals.Get(ctx, tx, rentalID, true)
		if err != nil {
			return err
		}

		if rent.UserID != user.ID && user.Role != account.RoleAdmin {
			return fmt.Errorf("%w: rental %s belongs to another user", apperr.ErrForbidden, rentalID)
		}
		if rent.Status == StatusReturned {
			return fmt.Errorf("%w: rental %s was already returned", apperr.ErrConflict, rentalID)
		}

		returnDate := today
		rent.ReturnDate = &returnDate
		rent.Status = StatusReturned
		rent.LateFee = LateFee(rent.PricePerDay, s.lateFeeRate, rent.DueDate, returnDate)
		rent.TotalAmount = rent.RentalPrice.Add(rent.LateFee)
		rent.Version++

		if err := s.rentals.SaveReturn(ctx, tx, rent); err != nil {
			return err
		}

		restocked, err := s.videos.PutBackCopy(ctx, tx, rent.VideoID)
		if err != nil {
			return err
		}
		if !restocked {
			s.logger.Warn("returned copy exceeds total copies, inventory left unchanged",
				zap.Stringer("video_id", rent.VideoID), zap.Stringer("rental_id", rent.ID))
		}

		event, err := eventlog.New("RentalReturned", RentalReturnedEvent{
			RentalID:    rent.ID,
			ReturnedBy:  user.Username,
			ReturnDate:  returnDate,
			LateFee:     rent.LateFee,
			TotalAmount: rent.TotalAmount,
		})
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, rent.ID, eventlog.AggregateRental, rent.Version-1, event); err != nil {
			return err
		}

		returned = rent
		return nil
	})
	if err != nil {
		s.reject(ctx, "return", err)
		return nil, err
	}

	s.metrics.returned.Add(ctx, 1)
	if returned.LateFee.IsPositive() {
		fee, _ := returned.LateFee.Float64()
		s.metrics.lateFee.Add(ctx, fee)
		s.logger.Info("late fee charged",
			zap.Stringer("rental_id", returned.ID),
			zap.String("late_fee", returned.LateFee.StringFixed(2)),
		)
	}
	s.logger.Info("video returned",
		zap.Stringer("rental_id", returned.ID),
		zap.String("username", p.Username),
		zap.String("total_amount", returned.TotalAmount.StringFixed(2)),
	)
	return returned, nil
}

// ListAll returns every rental.
func (s *service) ListAll(ctx context.Context) ([]*Rental, error) {
	ctx, span := s.tracer.Start(ctx, "rental.list_all")
	defer span.End()

	return s.rentals.ListAll(ctx, s.db)
}

// ListForUser returns the principal's rentals.
func (s *service) ListForUser(ctx context.Context, p account.Principal) ([]*Rental, error) {
	ctx, span := s.tracer.Start(ctx, "rental.list_for_user")
	defer span.End()

	user, err := s.users.GetByUsername(ctx, s.db, p.Username, false)
	if err != nil {
		return nil, err
	}
	return s.rentals.ListByUser(ctx, s.db, user.ID)
}

// ListByStatus returns the rentals in the given state.
func (s *service) ListByStatus(ctx context.Context, status Status) ([]*Rental, error) {
	ctx, span := s.tracer.Start(ctx, "rental.list_by_status",
		trace.WithAttributes(attribute.String("rental.status", string(status))))
	defer span.End()

	if _, ok := ParseStatus(string(status)); !ok {
		return nil, fmt.Errorf("%w: unknown rental status %q", apperr.ErrInvalidInput, status)
	}
	return s.rentals.ListByStatus(ctx, s.db, status)
}

// MarkOverdue moves every ACTIVE rental due before asOf to OVERDUE and returns
// how many were moved. Late fees are still computed at return time.
func (s *service) MarkOverdue(ctx context.Context, asOf Date) (int, error) {
	ctx, span := s.tracer.Start(ctx, "rental.mark_overdue",
		trace.WithAttributes(attribute.String("as_of", asOf.String())))
	defer span.End()

	marked := 0
	err := s.db.WithTx(ctx, "rental.mark_overdue", func(ctx context.Context, tx *sqlx.Tx) error {
		marked = 0
		candidates, err := s.rentals.ActivePastDue(ctx, tx, asOf)
		if err != nil {
			return err
		}

		for _, c := range candidates {
			moved, err := s.rentals.MarkOverdue(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}

			event, err := eventlog.New("RentalMarkedOverdue", RentalMarkedOverdueEvent{
				RentalID: c.ID,
				DueDate:  c.DueDate,
				AsOf:     asOf,
			})
			if err != nil {
				return err
			}
			if err := s.events.Append(ctx, tx, c.ID, eventlog.AggregateRental, c.Version, event); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}

	span.SetAttributes(attribute.Int("rentals.marked", marked))
	if marked > 0 {
		s.logger.Info("rentals marked overdue", zap.Int("count", marked), zap.Stringer("as_of", asOf))
	}
	return marked, nil
}

func (s *service) reject(ctx context.Context, op string, err error) {
	var reason string
	switch {
	case errors.Is(err, apperr.ErrVideoUnavailable):
		reason = "unavailable"
	case errors.Is(err, apperr.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		reason = "forbidden"
	case errors.Is(err, apperr.ErrConflict):
		reason = "conflict"
	case errors.Is(err, apperr.ErrInvalidInput):
		reason = "invalid_input"
	default:
		s.logger.Error("rental operation failed", zap.String("op", op), zap.Error(err))
		return
	}

	s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("reason", reason),
	))
	s.logger.Debug("rental operation rejected", zap.String("op", op), zap.String("reason", reason), zap.Error(err))
}
