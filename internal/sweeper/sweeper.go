// Package sweeper removes orders left without items when a non-transactional
// create died between its steps.
package sweeper

import (
	"context"
	"menu-service/internal/repository"
	"time"

	"go.uber.org/zap"
)

const DefaultGrace = 10 * time.Minute

type Observer interface {
	OrphansDeleted(n int)
}

type Sweeper struct {
	orders   repository.OrderRepo
	grace    time.Duration
	now      func() time.Time
	observer Observer
	log      *zap.Logger
}

func New(orders repository.OrderRepo, grace time.Duration, observer Observer, log *zap.Logger) *Sweeper {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Sweeper{
		orders:   orders,
		grace:    grace,
		now:      time.Now,
		observer: observer,
		log:      log,
	}
}

// DeleteOrphans removes orders with no items created before now-grace and
// returns how many were deleted. Younger orders may still be mid-create.
func (s *Sweeper) DeleteOrphans(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.grace)
	ids, err := s.orders.FindOrphans(ctx, cutoff)
	if err != nil {
		s.log.Error("failed to find orphaned orders", zap.Error(err))
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		n, err := s.orders.Delete(ctx, id)
		if err != nil {
			s.log.Error("failed to delete orphaned order", zap.String("order_id", id.String()), zap.Error(err))
			return deleted, err
		}
		deleted += int(n)
	}
	if deleted > 0 {
		s.log.Info("cleaned up orphaned orders", zap.Int("count", deleted), zap.Time("cutoff", cutoff))
		if s.observer != nil {
			s.observer.OrphansDeleted(deleted)
		}
	}
	return deleted, nil
}
