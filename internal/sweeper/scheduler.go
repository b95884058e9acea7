package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 15 * time.Minute

type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewScheduler(sweeper *Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once immediately, then every interval, until ctx is done or
// Stop is called. It blocks.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting orphan sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.sweeper.DeleteOrphans(ctx); err != nil {
		s.log.Error("initial orphan sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.sweeper.DeleteOrphans(ctx); err != nil {
				s.log.Error("orphan sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("orphan sweeper stopped")
			return
		case <-ctx.Done():
			s.log.Info("orphan sweeper cancelled")
			return
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnceNow runs a single sweep synchronously.
func (s *Scheduler) RunOnceNow(ctx context.Context) (int, error) {
	return s.sweeper.DeleteOrphans(ctx)
}
