package rental

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper marks past-due rentals OVERDUE on a fixed interval.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(service Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger.Named("overdue_sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("overdue sweeper started", zap.Duration("interval", s.interval))
	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("overdue sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.MarkOverdue(ctx, s.service.Today()); err != nil && ctx.Err() == nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
	}
}
