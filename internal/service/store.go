package service

import (
	"context"
	"errors"
	"fmt"
	"menu-service/internal/repository"
	"time"
)

const DefaultStoreTimeout = 30 * time.Second

// Repos is the set of store handles a service works against. Tx is nil when
// the backing store cannot run multi-statement transactions.
type Repos struct {
	Orders     repository.OrderRepo
	Items      repository.OrderItemRepo
	Coupons    repository.CouponRepo
	Products   repository.ProductRepo
	StatusLogs repository.StatusLogRepo

	Tx func(ctx context.Context, fn func(tx Repos) error) error
}

func (r Repos) SupportsTx() bool { return r.Tx != nil }

func ReposFrom(r *repository.Repository) Repos {
	out := reposOf(r)
	out.Tx = func(ctx context.Context, fn func(tx Repos) error) error {
		return r.WithTx(ctx, func(tx *repository.Repository) error {
			return fn(reposOf(tx))
		})
	}
	return out
}

func reposOf(r *repository.Repository) Repos {
	return Repos{
		Orders:     r.Orders,
		Items:      r.OrderItems,
		Coupons:    r.Coupons,
		Products:   r.Products,
		StatusLogs: r.StatusLogs,
	}
}

// storeGuard bounds every store call with a deadline and tags failures.
type storeGuard struct {
	timeout  time.Duration
	observer Observer
}

func (g storeGuard) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		g.observer.StoreTimeout(op)
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func fetch[T any](g storeGuard, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.run(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
