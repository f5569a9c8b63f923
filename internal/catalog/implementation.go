package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
	"rentvideo/internal/validation"
)

// service implements the Service interface.
type service struct {
	db        *database.DB
	repo      *Repository
	events    *eventlog.Log
	validator *validation.Validator
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates a new catalog service instance.
func NewService(db *database.DB, repo *Repository, events *eventlog.Log, logger *zap.Logger) Service {
	return &service{
		db:        db,
		repo:      repo,
		events:    events,
		validator: validation.New(),
		logger:    logger.Named("catalog"),
		tracer:    otel.Tracer("rentvideo/catalog"),
		now:       time.Now,
	}
}

func (s *service) validate(in VideoInput) error {
	if err := s.validator.Validate(in); err != nil {
		return err
	}
	if in.RentalPricePerDay.IsNegative() {
		return fmt.Errorf("%w: RentalPricePerDay must not be negative", apperr.ErrInvalidInput)
	}
	return nil
}

// AddVideo creates a new video with every copy available.
func (s *service) AddVideo(ctx context.Context, in VideoInput) (*Video, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_video")
	defer span.End()

	if err := s.validate(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	video := &Video{
		ID:                uuid.New(),
		Title:             in.Title,
		Description:       in.Description,
		Director:          in.Director,
		Genre:             in.Genre,
		ReleaseYear:       in.ReleaseYear,
		DurationMinutes:   in.DurationMinutes,
		RentalPricePerDay: in.RentalPricePerDay.Round(2),
		TotalCopies:       in.TotalCopies,
		AvailableCopies:   in.TotalCopies,
		CoverImageURL:     in.CoverImageURL,
		Status:            StatusActive,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	event, err := eventlog.New("VideoAdded", VideoAddedEvent{
		ID:          video.ID,
		Title:       video.Title,
		TotalCopies: video.TotalCopies,
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, "catalog.add_video", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.Insert(ctx, tx, video); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, video.ID, eventlog.AggregateVideo, 0, event)
	})
	if err != nil {
		return nil, fmt.Errorf("add video: %w", err)
	}

	span.SetAttributes(attribute.String("video.id", video.ID.String()))
	s.logger.Info("video added", zap.Stringer("video_id", video.ID), zap.String("title", video.Title),
		zap.Int("total_copies", video.TotalCopies))
	return video, nil
}

// GetVideo retrieves a video by its ID.
func (s *service) GetVideo(ctx context.Context, id uuid.UUID) (*Video, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.get_video",
		trace.WithAttributes(attribute.String("video.id", id.String())))
	defer span.End()

	return s.repo.Get(ctx, s.db, id, false)
}

// ListVideos returns the videos matching the filter.
func (s *service) ListVideos(ctx context.Context, filter Filter) ([]*Video, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_videos")
	defer span.End()

	videos, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("videos.count", len(videos)))
	return videos, nil
}

// UpdateVideo replaces the editable fields of a video. A new copy total shifts
// the available copies by the same delta; a total below the number of copies
// currently rented out is rejected.
func (s *service) UpdateVideo(ctx context.Context, id uuid.UUID, in VideoInput) (*Video, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_video",
		trace.WithAttributes(attribute.String("video.id", id.String())))
	defer span.End()

	if err := s.validate(in); err != nil {
		return nil, err
	}

	var updated *Video
	err := s.db.WithTx(ctx, "catalog.update_video", func(ctx context.Context, tx *sqlx.Tx) error {
		video, err := s.repo.Get(ctx, tx, id, true)
		if err != nil {
			return err
		}

		rentedOut := video.TotalCopies - video.AvailableCopies
		if in.TotalCopies < rentedOut {
			return fmt.Errorf("%w: total copies %d is below the %d copies currently rented out",
				apperr.ErrConflict, in.TotalCopies, rentedOut)
		}

		previousTotal := video.TotalCopies
		video.Title = in.Title
		video.Description = in.Description
		video.Director = in.Director
		video.Genre = in.Genre
		video.ReleaseYear = in.ReleaseYear
		video.DurationMinutes = in.DurationMinutes
		video.RentalPricePerDay = in.RentalPricePerDay.Round(2)
		video.AvailableCopies += in.TotalCopies - previousTotal
		video.TotalCopies = in.TotalCopies
		video.CoverImageURL = in.CoverImageURL
		video.Version++
		video.UpdatedAt = s.now().UTC()

		if err := s.repo.Update(ctx, tx, video); err != nil {
			return err
		}

		event, err := eventlog.New("VideoUpdated", VideoUpdatedEvent{
			ID:            video.ID,
			Title:         video.Title,
			PricePerDay:   video.RentalPricePerDay,
			NewTotal:      video.TotalCopies,
			NewAvailable:  video.AvailableCopies,
			PreviousTotal: previousTotal,
		})
		if err != nil {
			return err
		}
		if err := s.appendVideoEvent(ctx, tx, video.ID, event); err != nil {
			return err
		}

		updated = video
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}

	s.logger.Info("video updated", zap.Stringer("video_id", id),
		zap.Int("total_copies", updated.TotalCopies), zap.Int("available_copies", updated.AvailableCopies))
	return updated, nil
}

// RemoveVideo retires a video. Videos with outstanding rentals cannot be removed.
func (s *service) RemoveVideo(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "catalog.remove_video",
		trace.WithAttributes(attribute.String("video.id", id.String())))
	defer span.End()

	err := s.db.WithTx(ctx, "catalog.remove_video", func(ctx context.Context, tx *sqlx.Tx) error {
		video, err := s.repo.Get(ctx, tx, id, true)
		if err != nil {
			return err
		}

		outstanding, err := s.repo.OutstandingRentals(ctx, tx, id)
		if err != nil {
			return err
		}
		if outstanding > 0 {
			return fmt.Errorf("%w: video %s has %d outstanding rentals", apperr.ErrConflict, id, outstanding)
		}

		if err := s.repo.Retire(ctx, tx, id, video.Version); err != nil {
			return err
		}

		event, err := eventlog.New("VideoRetired", VideoRetiredEvent{ID: id, Status: StatusRetired})
		if err != nil {
			return err
		}
		return s.appendVideoEvent(ctx, tx, id, event)
	})
	if err != nil {
		return fmt.Errorf("remove video: %w", err)
	}

	s.logger.Info("video retired", zap.Stringer("video_id", id))
	return nil
}

// CountVideos returns the number of videos in the catalog.
func (s *service) CountVideos(ctx context.Context) (int, error) {
	return s.repo.Count(ctx, s.db)
}

// appendVideoEvent appends after the last recorded video event. Inventory moves
// made by rentals bump the row version without a video event, so the event
// stream keeps its own sequence.
func (s *service) appendVideoEvent(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, event eventlog.Event) error {
	history, err := s.events.Load(ctx, tx, id)
	if err != nil {
		return err
	}
	return s.events.Append(ctx, tx, id, eventlog.AggregateVideo, len(history), event)
}
