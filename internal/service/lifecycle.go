package service

import (
	"context"
	"fmt"
	"menu-service/internal/models"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const BroadcastWarning = "status updated, but live notification may have failed"

// TransitionStatus advances an order one step along its lifecycle. Asking for
// the status the order already has is a no-op that returns the stored row.
func (s *orderService) TransitionStatus(ctx context.Context, id uuid.UUID, requested string) (*TransitionResult, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("op", "transition_status"), zap.String("order_id", id.String()))

	to, ok := models.ParseOrderStatus(requested)
	if !ok {
		log.Warn("rejected transition", zap.String("requested", requested), zap.String("result", "invalid_status"))
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, requested)
	}
	log = log.With(zap.String("to", string(to)))

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		log.Warn("transition read failed", zap.String("result", KindOf(err).String()), zap.Error(err))
		return nil, err
	}
	from := current.Status
	log = log.With(zap.String("from", string(from)))

	if from == to {
		log.Info("transition is a no-op", zap.String("result", "noop"))
		s.observer.TransitionAttempt(from, to, "noop")
		return &TransitionResult{Order: current}, nil
	}
	if !from.CanTransition(to) {
		log.Warn("rejected transition", zap.String("result", "invalid_transition"))
		s.observer.TransitionAttempt(from, to, "invalid_transition")
		return nil, &TransitionError{From: from, To: to}
	}

	at := s.now().UTC()
	applied, err := s.writeTransition(ctx, id, from, to, actor, at)
	if err != nil {
		log.Error("transition write failed", zap.String("result", KindOf(err).String()), zap.Error(err))
		s.observer.TransitionAttempt(from, to, KindOf(err).String())
		return nil, err
	}

	if !applied {
		// Someone else moved the order between our read and write.
		fresh, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if fresh.Status == to {
			log.Info("transition already applied by another client", zap.String("result", "noop"))
			s.observer.TransitionAttempt(from, to, "noop")
			return &TransitionResult{Order: fresh}, nil
		}
		log.Warn("stale transition rejected", zap.String("current", string(fresh.Status)), zap.String("result", "invalid_transition"))
		s.observer.TransitionAttempt(fresh.Status, to, "invalid_transition")
		return nil, &TransitionError{From: fresh.Status, To: to}
	}

	confirmed, err := s.confirmStatus(ctx, id, to)
	if err != nil {
		log.Error("transition not confirmed", zap.String("result", KindOf(err).String()), zap.Error(err))
		s.observer.TransitionAttempt(from, to, KindOf(err).String())
		return nil, err
	}

	res := &TransitionResult{Order: confirmed}
	ev := OrderStatusChangedEvent{OrderID: id, From: from, To: to, ChangedBy: &actor, ChangedAt: at}
	if s.bcast != nil {
		if err := s.bcast.BroadcastStatus(ctx, ev); err != nil {
			log.Warn("status broadcast failed", zap.Error(err))
			res.Warning = BroadcastWarning
		}
	}
	if s.events != nil {
		if err := s.events.PublishOrderStatusChanged(ctx, ev); err != nil {
			log.Warn("publish order.status_changed failed", zap.Error(err))
		}
	}

	log.Info("order status changed", zap.String("result", "applied"), zap.String("changed_by", actor.String()))
	s.observer.TransitionAttempt(from, to, "applied")
	return res, nil
}

// writeTransition updates the row only if it still holds the status we read,
// and records the change in the status log.
func (s *orderService) writeTransition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, actor uuid.UUID, at time.Time) (bool, error) {
	entry := &models.OrderStatusLog{OrderID: id, FromStatus: from, ToStatus: to, ChangedBy: &actor, ChangedAt: at}

	var applied bool
	write := func(ctx context.Context, r Repos) error {
		ok, err := r.Orders.UpdateStatusGuard(ctx, id, from, to, at)
		if err != nil || !ok {
			return err
		}
		applied = true
		return r.StatusLogs.Create(ctx, entry)
	}

	if s.repos.SupportsTx() {
		err := s.guard.run(ctx, "update order status", func(ctx context.Context) error {
			return s.repos.Tx(ctx, func(tx Repos) error { return write(ctx, tx) })
		})
		if err != nil {
			return false, err
		}
		return applied, nil
	}

	err := s.guard.run(ctx, "update order status", func(ctx context.Context) error {
		ok, err := s.repos.Orders.UpdateStatusGuard(ctx, id, from, to, at)
		applied = ok
		return err
	})
	if err != nil || !applied {
		return applied, err
	}
	if err := s.guard.run(ctx, "append status log", func(ctx context.Context) error {
		return s.repos.StatusLogs.Create(ctx, entry)
	}); err != nil {
		s.log.Warn("status log append failed", zap.String("order_id", id.String()), zap.Error(err))
	}
	return true, nil
}

// confirmStatus re-reads the row until it reports the requested status,
// tolerating replica lag for a couple of short pauses.
func (s *orderService) confirmStatus(ctx context.Context, id uuid.UUID, want models.OrderStatus) (*models.Order, error) {
	var last models.OrderStatus
	for attempt := 0; attempt <= len(s.rereadDelays); attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.rereadDelays[attempt-1]); err != nil {
				return nil, fmt.Errorf("confirm status: %w", err)
			}
		}
		ord, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if ord.Status == want {
			return ord, nil
		}
		last = ord.Status
	}
	return nil, fmt.Errorf("%w: want %s, got %s", ErrStatusMismatch, want, last)
}
