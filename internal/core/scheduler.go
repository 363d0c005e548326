package core

// scheduler.go runs the session sweeper in the background.
//
// Abandoned imports hold their whole record set in memory, so the sweeper
// periodically drops sessions that closed or went idle past the TTL. It is
// long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper runs when none is given.
const DefaultSweepInterval = time.Minute

// StartSweeper blocks, sweeping every interval until ctx is done.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started",
		"interval", interval.String(),
		"session_ttl", s.opts.SessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

func (s *Service) runSweep() {
	start := time.Now()
	removed := s.Sweep()
	if removed == 0 {
		return
	}
	slog.Info("swept import sessions",
		"removed", removed,
		"remaining", s.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
