package kanban

import (
	"context"
	"errors"
	"fmt"
	"io"
	"menu-service/internal/changefeed"
	"menu-service/internal/models"
	"menu-service/internal/realtime"
	"menu-service/internal/transport/http/dto"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBusy = errors.New("a change for this order is already in flight")

type API interface {
	ActiveOrders(ctx context.Context) ([]*models.Order, error)
	Transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*dto.TransitionResponse, error)
}

// Board is the kitchen view: optimistic moves, feed events and periodic
// resyncs all go through one reconciler.
type Board struct {
	api      API
	rec      *realtime.Reconciler
	guard    *realtime.InflightGuard
	onNotice func(realtime.Notice)
	log      *zap.Logger

	mu        sync.Mutex
	connState realtime.State
}

func NewBoard(api API, rec *realtime.Reconciler, onNotice func(realtime.Notice), log *zap.Logger) *Board {
	if onNotice == nil {
		onNotice = func(realtime.Notice) {}
	}
	return &Board{
		api:       api,
		rec:       rec,
		guard:     realtime.NewInflightGuard(),
		onNotice:  onNotice,
		log:       log,
		connState: realtime.StateConnecting,
	}
}

// Resync refetches everything; called on (re)subscribe and on a timer.
func (b *Board) Resync(ctx context.Context) error {
	orders, err := b.api.ActiveOrders(ctx)
	if err != nil {
		return err
	}
	for _, n := range b.rec.Resync(orders) {
		b.onNotice(n)
	}
	return nil
}

// HandleEvent is the feed callback.
func (b *Board) HandleEvent(ev changefeed.Event) {
	if n := b.rec.Apply(ev); n != nil {
		b.onNotice(*n)
	}
}

// Advance moves an order one step forward. The board shows the new status
// immediately and reverts it if the service refuses.
func (b *Board) Advance(ctx context.Context, id uuid.UUID) error {
	release, ok := b.guard.TryAcquire(id)
	if !ok {
		return ErrBusy
	}
	defer release()

	cur, ok := b.rec.Get(id)
	if !ok {
		return realtime.ErrUnknownOrder
	}
	next, ok := cur.Status.Next()
	if !ok {
		return fmt.Errorf("order is already %s", cur.Status)
	}
	if _, err := b.rec.BeginTransition(id, next); err != nil {
		return err
	}

	resp, err := b.api.Transition(ctx, id, next)
	if err != nil {
		if n := b.rec.Revert(id, err); n != nil {
			b.onNotice(*n)
		}
		b.log.Warn("transition failed",
			zap.String("order_id", id.String()),
			zap.String("from", string(cur.Status)),
			zap.String("to", string(next)),
			zap.Error(err),
		)
		return err
	}
	b.rec.ConfirmResponse(resp.Order)
	if resp.Warning != "" {
		b.onNotice(realtime.Notice{Kind: realtime.NoticeWarning, OrderID: id, Message: resp.Warning})
	}
	return nil
}

func (b *Board) Busy(id uuid.UUID) bool { return b.guard.Busy(id) }

// ConnectionChanged feeds the connection manager state into the banner.
func (b *Board) ConnectionChanged(s realtime.State, attempts int) {
	b.mu.Lock()
	prev := b.connState
	b.connState = s
	b.mu.Unlock()

	switch {
	case s == realtime.StateDisconnected && prev != realtime.StateDisconnected:
		b.onNotice(realtime.Notice{Kind: realtime.NoticeDisconnected,
			Message: fmt.Sprintf("live updates lost after %d attempts, press r to retry", attempts)})
	case s == realtime.StateSubscribed && (prev == realtime.StateReconnecting || prev == realtime.StateDisconnected):
		b.onNotice(realtime.Notice{Kind: realtime.NoticeReconnected, Message: "live updates restored"})
	}
}

func (b *Board) ConnState() realtime.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connState
}

// Resolve finds an order by full id or unique id prefix.
func (b *Board) Resolve(ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	var found []uuid.UUID
	for _, o := range b.rec.Snapshot() {
		if strings.HasPrefix(o.ID.String(), ref) {
			found = append(found, o.ID)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, realtime.ErrUnknownOrder
	case 1:
		return found[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%q matches %d orders", ref, len(found))
	}
}

// Render writes the three columns, oldest order first in each.
func (b *Board) Render(w io.Writer, now time.Time) error {
	cols := map[models.OrderStatus][]models.Order{}
	snap := b.rec.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		o := snap[i]
		cols[o.Status] = append(cols[o.Status], o)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "[%s]\n", b.ConnState())
	order := []models.OrderStatus{models.OrderStatusReceived, models.OrderStatusPreparing, models.OrderStatusReady}
	for _, st := range order {
		fmt.Fprintf(tw, "%s (%d)\n", strings.ToUpper(string(st)), len(cols[st]))
		for _, o := range cols[st] {
			mark := ""
			if b.Busy(o.ID) {
				mark = "…"
			}
			fmt.Fprintf(tw, "  %s%s\t%s\t%s\t%s\n",
				o.ID.String()[:8], mark, label(o), itemsSummary(o), now.Sub(o.CreatedAt).Truncate(time.Minute))
		}
	}
	return tw.Flush()
}

func label(o models.Order) string {
	if o.OrderType == models.OrderTypeDineIn && o.TableNumber != nil {
		return fmt.Sprintf("table %d", *o.TableNumber)
	}
	if o.CustomerName != nil {
		return *o.CustomerName
	}
	return string(o.OrderType)
}

func itemsSummary(o models.Order) string {
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.ProductName))
	}
	return strings.Join(parts, ", ")
}
