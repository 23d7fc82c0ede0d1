package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
)

// HousekeepingService periodically removes expired sessions and stale
// cooldown entries so neither grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Sweeper  ratelimit.Sweeper // optional
	Logger   *slog.Logger
	Interval time.Duration
	Clock    clock.Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, sweeper ratelimit.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		Clock:    clock.Real(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, s.Clock.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		s.Logger.Debug("deleted expired sessions", "count", n)
	}

	if s.Sweeper != nil {
		s.Logger.Debug("swept cooldown entries", "count", s.Sweeper.Sweep())
	}
}
