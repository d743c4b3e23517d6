package scheduling

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically expires stale holds and completes past
// bookings. Correctness does not depend on it: every read and hold
// path expires lapsed holds lazily. The sweep only keeps inboxes and
// calendars tidy between accesses.
type Sweeper struct {
	co       *Coordinator
	interval time.Duration
	log      *zap.Logger
}

// NewSweeper builds a sweeper for the coordinator. A non-positive
// interval defaults to one minute.
func NewSweeper(co *Coordinator, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{co: co, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, sweeping once immediately and
// then on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("booking sweeper started", zap.Duration("interval", s.interval))
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.log.Info("booking sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.co.ExpireStaleHolds(ctx)
	if err != nil {
		s.log.Error("expire stale holds", zap.Error(err))
	} else if expired > 0 {
		s.log.Info("expired stale holds", zap.Int("count", expired))
	}
	completed, err := s.co.CompletePastBookings(ctx)
	if err != nil {
		s.log.Error("complete past bookings", zap.Error(err))
	} else if completed > 0 {
		s.log.Info("completed past bookings", zap.Int64("count", completed))
	}
}
