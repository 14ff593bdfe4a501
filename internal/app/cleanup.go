package app

import (
	"context"
	"log/slog"
	"time"
)

// CleanupSweeper periodically deletes expired reservation rows. It is a
// liveness mechanism only: availability arithmetic already filters on
// expiry, so nothing is incorrect if a sweep runs late or not at all.
type CleanupSweeper struct {
	reservations *ReservationService
	interval     time.Duration
	logger       *slog.Logger
}

const defaultCleanupInterval = 5 * time.Minute

func NewCleanupSweeper(reservations *ReservationService, interval time.Duration, logger *slog.Logger) *CleanupSweeper {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &CleanupSweeper{
		reservations: reservations,
		interval:     interval,
		logger:       logger,
	}
}

// Run sweeps until the context is cancelled.
func (s *CleanupSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.reservations.CleanupExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("reservation cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired reservations removed", slog.Int64("count", deleted))
			}
		}
	}
}
