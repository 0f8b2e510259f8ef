package service

import (
	"context"
	"time"

	"examslots/internal/reservations/repository"
	"examslots/pkg/logger"
)

// ExpirySweeper periodically removes expired reservations from backends
// that do not reclaim them on their own. Reads never depend on it.
type ExpirySweeper struct {
	store    repository.Sweeper
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewExpirySweeper(store repository.Sweeper, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		store:    store,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is done.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Expiry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return nil
		}
	}
}

func (s *ExpirySweeper) SweepOnce(ctx context.Context) int64 {
	removed, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		s.log.Error("Failed to sweep expired reservations", "error", err)
		return 0
	}
	if removed > 0 {
		s.log.Debug("Swept expired reservations", "removed", removed)
	}
	return removed
}
