package realtime

import (
	"errors"
	"fmt"
	"menu-service/internal/changefeed"
	"menu-service/internal/models"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrUnknownOrder = errors.New("order is not in the working set")

// Optimistic is the local guess recorded when this client asks for a transition.
type Optimistic struct {
	Status         models.OrderStatus
	Previous       models.OrderStatus
	LocalTimestamp time.Time
}

type ReconcilerConfig struct {
	OptimisticCap int
	OptimisticTTL time.Duration
	// Resync drops optimistic records older than this.
	StaleAfter time.Duration
	SeenCap    int
	SeenTTL    time.Duration
	Now        func() time.Time
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		OptimisticCap: 256,
		OptimisticTTL: 2 * time.Minute,
		StaleAfter:    30 * time.Second,
		SeenCap:       100,
		SeenTTL:       5 * time.Minute,
		Now:           time.Now,
	}
}

// Reconciler owns one client's working set of orders and merges its own
// optimistic changes with what the change feed reports.
type Reconciler struct {
	mu         sync.Mutex
	cfg        ReconcilerConfig
	orders     map[uuid.UUID]*models.Order
	optimistic *expirable.LRU[uuid.UUID, Optimistic]
	seen       *expirable.LRU[uuid.UUID, struct{}]
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	def := DefaultReconcilerConfig()
	if cfg.OptimisticCap <= 0 {
		cfg.OptimisticCap = def.OptimisticCap
	}
	if cfg.OptimisticTTL <= 0 {
		cfg.OptimisticTTL = def.OptimisticTTL
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = def.SeenCap
	}
	if cfg.SeenTTL <= 0 {
		cfg.SeenTTL = def.SeenTTL
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Reconciler{
		cfg:        cfg,
		orders:     map[uuid.UUID]*models.Order{},
		optimistic: expirable.NewLRU[uuid.UUID, Optimistic](cfg.OptimisticCap, nil, cfg.OptimisticTTL),
		seen:       expirable.NewLRU[uuid.UUID, struct{}](cfg.SeenCap, nil, cfg.SeenTTL),
	}
}

// Load replaces the working set, typically with the initial fetch.
func (r *Reconciler) Load(orders []*models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		cp := *o
		r.orders[o.ID] = &cp
		r.seen.Add(o.ID, struct{}{})
	}
}

// BeginTransition applies the requested status locally before the server answers.
func (r *Reconciler) BeginTransition(id uuid.UUID, to models.OrderStatus) (Optimistic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Optimistic{}, ErrUnknownOrder
	}
	rec := Optimistic{Status: to, Previous: o.Status, LocalTimestamp: r.cfg.Now()}
	if prev, ok := r.optimistic.Peek(id); ok {
		rec.Previous = prev.Previous
	}
	r.optimistic.Add(id, rec)
	o.Status = to
	return rec, nil
}

// Revert undoes the optimistic change after the request failed.
func (r *Reconciler) Revert(id uuid.UUID, reason error) *Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.optimistic.Peek(id)
	if !ok {
		return nil
	}
	r.optimistic.Remove(id)
	if o, ok := r.orders[id]; ok && o.Status == rec.Status {
		o.Status = rec.Previous
	}
	msg := fmt.Sprintf("could not move order to %s", rec.Status)
	if reason != nil {
		msg += ": " + reason.Error()
	}
	return &Notice{Kind: NoticeReverted, OrderID: id, Message: msg}
}

// ConfirmResponse clears the optimistic record and adopts the returned row
// unless the feed already delivered a newer one.
func (r *Reconciler) ConfirmResponse(o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimistic.Remove(o.ID)
	if cur, ok := r.orders[o.ID]; ok && o.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	r.adopt(o)
}

// Apply merges one change-feed event and reports a conflict when another
// actor overrode this client's optimistic guess.
func (r *Reconciler) Apply(ev changefeed.Event) *Notice {
	if ev.New == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := ev.New
	if ev.Op == changefeed.OpInsert {
		if r.seen.Contains(incoming.ID) || r.orders[incoming.ID] != nil {
			if cur, ok := r.orders[incoming.ID]; ok && incoming.UpdatedAt.After(cur.UpdatedAt) {
				r.adopt(incoming)
			}
			return nil
		}
		r.seen.Add(incoming.ID, struct{}{})
		r.adopt(incoming)
		return nil
	}

	rec, ok := r.optimistic.Peek(incoming.ID)
	if !ok {
		r.adopt(incoming)
		return nil
	}
	r.optimistic.Remove(incoming.ID)
	r.adopt(incoming)

	if incoming.UpdatedAt.After(rec.LocalTimestamp) && incoming.Status != rec.Status {
		return &Notice{
			Kind:    NoticeConflict,
			OrderID: incoming.ID,
			Message: fmt.Sprintf("order was updated by someone else: now %s", incoming.Status),
		}
	}
	return nil
}

// Resync replaces the working set with a full fetch. Optimistic records that
// are still young keep their local status; stale ones are dropped.
func (r *Reconciler) Resync(orders []*models.Order) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	next := make(map[uuid.UUID]*models.Order, len(orders))
	var notices []Notice
	for _, o := range orders {
		cp := *o
		if rec, ok := r.optimistic.Peek(o.ID); ok {
			switch {
			case o.Status == rec.Status:
				r.optimistic.Remove(o.ID)
			case now.Sub(rec.LocalTimestamp) > r.cfg.StaleAfter:
				r.optimistic.Remove(o.ID)
				notices = append(notices, Notice{
					Kind:    NoticeReverted,
					OrderID: o.ID,
					Message: fmt.Sprintf("change to %s was not confirmed, showing %s", rec.Status, o.Status),
				})
			default:
				cp.Status = rec.Status
			}
		}
		next[o.ID] = &cp
		r.seen.Add(o.ID, struct{}{})
	}
	r.orders = next
	return notices
}

func (r *Reconciler) adopt(o *models.Order) {
	cp := *o
	if cur, ok := r.orders[o.ID]; ok && len(cp.Items) == 0 {
		// change-feed rows carry no items
		cp.Items = cur.Items
	}
	r.orders[o.ID] = &cp
}

func (r *Reconciler) Get(id uuid.UUID) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

func (r *Reconciler) Pending(id uuid.UUID) (Optimistic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.optimistic.Peek(id)
}

// Snapshot returns the working set, newest first.
func (r *Reconciler) Snapshot() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
