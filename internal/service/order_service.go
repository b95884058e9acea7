package service

import (
	"context"
	"fmt"
	"menu-service/internal/models"
	"menu-service/internal/pricing"
	"menu-service/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	maxListLimit     = 200

	// Ready orders drop off customer self-tracking after this long.
	TrackingReadyWindow = 2 * time.Hour
)

type orderService struct {
	repos    Repos
	pricing  PricingProvider
	events   EventBus
	bcast    Broadcaster
	log      *zap.Logger
	guard    storeGuard
	observer Observer

	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	rereadDelays []time.Duration
}

type Option func(*orderService)

func WithStoreTimeout(d time.Duration) Option {
	return func(s *orderService) {
		if d > 0 {
			s.guard.timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *orderService) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *orderService) { s.bcast = b }
}

func WithClock(now func() time.Time) Option {
	return func(s *orderService) { s.now = now }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *orderService) { s.sleep = fn }
}

// WithRereadDelays sets the pauses before each extra confirmation read.
func WithRereadDelays(d ...time.Duration) Option {
	return func(s *orderService) { s.rereadDelays = d }
}

func NewOrderService(repos Repos, pricing PricingProvider, events EventBus, log *zap.Logger, opts ...Option) OrderService {
	s := &orderService{
		repos:        repos,
		pricing:      pricing,
		events:       events,
		log:          log,
		observer:     nopObserver{},
		now:          time.Now,
		sleep:        sleepCtx,
		rereadDelays: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond},
	}
	s.guard.timeout = DefaultStoreTimeout
	for _, opt := range opts {
		opt(s)
	}
	s.guard.observer = s.observer
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateCustomer(in); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := fetch(s.guard, ctx, "load products", func(ctx context.Context) (map[uuid.UUID]*models.Product, error) {
		return s.pricing.Products(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:        uuid.New(),
		OrderType: in.OrderType,
		Status:    models.OrderStatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch in.OrderType {
	case models.OrderTypePickup:
		name, phone := strings.TrimSpace(in.CustomerName), strings.TrimSpace(in.CustomerPhone)
		order.CustomerName, order.CustomerPhone = &name, &phone
	case models.OrderTypeDineIn:
		table := *in.TableNumber
		order.TableNumber = &table
	}

	items, err := snapshotItems(order.ID, in.Items, products, now)
	if err != nil {
		return nil, err
	}
	order.Items = items

	lines := make([]int64, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.TotalPriceCents)
	}

	var coupon *models.Coupon
	if code := models.NormalizeCouponCode(in.CouponCode); code != "" {
		coupon, err = s.activeCoupon(ctx, code)
		if err != nil {
			return nil, err
		}
		order.CouponCode = &code
	}
	q := pricing.Compute(lines, coupon)
	order.SubtotalCents = q.SubtotalCents
	order.DiscountCents = q.DiscountCents
	order.TotalCents = q.TotalCents

	if s.repos.SupportsTx() {
		err = s.guard.run(ctx, "create order", func(ctx context.Context) error {
			return s.repos.Tx(ctx, func(tx Repos) error {
				return persistOrder(ctx, tx, order)
			})
		})
	} else {
		err = s.createSaga(ctx, order)
	}
	if err != nil {
		s.log.Error("create order failed",
			zap.String("order_id", order.ID.String()),
			zap.String("order_type", string(order.OrderType)),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_type", string(order.OrderType)),
		zap.Int("items", len(order.Items)),
		zap.Int64("total_cents", order.TotalCents))
	s.observer.OrderCreated(order.OrderType, order.TotalCents)
	s.publishCreated(ctx, order)

	return order, nil
}

func (s *orderService) activeCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := fetch(s.guard, ctx, "load coupon", func(ctx context.Context) (*models.Coupon, error) {
		return s.repos.Coupons.GetByCode(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	if !c.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrCouponInactive, code)
	}
	return c, nil
}

// createSaga writes order, items and options one by one. Any failure once the
// order row exists deletes it again; a crash in between leaves an orphan
// that the sweeper removes later.
func (s *orderService) createSaga(ctx context.Context, order *models.Order) error {
	if err := s.guard.run(ctx, "insert order", func(ctx context.Context) error {
		return s.repos.Orders.Create(ctx, order)
	}); err != nil {
		return err
	}

	err := s.guard.run(ctx, "insert order items", func(ctx context.Context) error {
		return s.repos.Items.BulkCreate(ctx, order.Items)
	})
	if err == nil {
		err = s.guard.run(ctx, "insert item options", func(ctx context.Context) error {
			return s.repos.Items.CreateOptions(ctx, collectOptions(order.Items))
		})
	}
	if err == nil {
		return nil
	}

	cerr := s.guard.run(context.WithoutCancel(ctx), "compensate order", func(ctx context.Context) error {
		_, err := s.repos.Orders.Delete(ctx, order.ID)
		return err
	})
	if cerr != nil {
		s.log.Error("compensating delete failed, order left orphaned",
			zap.String("order_id", order.ID.String()), zap.Error(cerr))
	} else {
		s.log.Warn("order rolled back", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	return err
}

func persistOrder(ctx context.Context, r Repos, order *models.Order) error {
	if err := r.Orders.Create(ctx, order); err != nil {
		return err
	}
	if err := r.Items.BulkCreate(ctx, order.Items); err != nil {
		return err
	}
	return r.Items.CreateOptions(ctx, collectOptions(order.Items))
}

func collectOptions(items []models.OrderItem) []models.OrderItemOption {
	var out []models.OrderItemOption
	for _, it := range items {
		out = append(out, it.Options...)
	}
	return out
}

func snapshotItems(orderID uuid.UUID, in []CreateOrderItem, products map[uuid.UUID]*models.Product, now time.Time) ([]models.OrderItem, error) {
	verr := &ValidationError{}
	items := make([]models.OrderItem, 0, len(in))

	for i, it := range in {
		field := fmt.Sprintf("items[%d]", i)
		if it.Quantity == 0 {
			verr.Add(field+".quantity", "must be greater than zero")
			continue
		}
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive {
			verr.Add(field+".product_id", "product is not available")
			continue
		}

		item := models.OrderItem{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProductID:         p.ID,
			ProductName:       p.Name,
			ProductPriceCents: p.PriceCents,
			Quantity:          it.Quantity,
			Position:          len(items),
			Notes:             strings.TrimSpace(it.Notes),
			CreatedAt:         now,
		}
		optPrices := make([]int64, 0, len(it.OptionIDs))
		for _, oid := range it.OptionIDs {
			po := findOption(p, oid)
			if po == nil {
				verr.Add(field+".option_ids", "option "+oid.String()+" does not belong to product")
				continue
			}
			item.Options = append(item.Options, models.OrderItemOption{
				ID:                   uuid.New(),
				OrderItemID:          item.ID,
				GroupName:            po.GroupName,
				OptionName:           po.Name,
				AdditionalPriceCents: po.AdditionalPriceCents,
			})
			optPrices = append(optPrices, po.AdditionalPriceCents)
		}
		item.TotalPriceCents = pricing.LineTotal(item.ProductPriceCents, optPrices, item.Quantity)
		items = append(items, item)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return items, nil
}

func validateCustomer(in CreateOrderInput) error {
	verr := &ValidationError{}
	switch in.OrderType {
	case models.OrderTypePickup:
		if strings.TrimSpace(in.CustomerName) == "" {
			verr.Add("customer_name", "is required for pickup orders")
		}
		if strings.TrimSpace(in.CustomerPhone) == "" {
			verr.Add("customer_phone", "is required for pickup orders")
		}
		if in.TableNumber != nil {
			verr.Add("table_number", "must be empty for pickup orders")
		}
	case models.OrderTypeDineIn:
		if in.TableNumber == nil || *in.TableNumber <= 0 {
			verr.Add("table_number", "is required for dine-in orders")
		}
		if in.CustomerName != "" || in.CustomerPhone != "" {
			verr.Add("customer_name", "must be empty for dine-in orders")
		}
	default:
		verr.Add("order_type", "must be pickup or dine_in")
	}
	return verr.orNil()
}

func (s *orderService) publishCreated(ctx context.Context, o *models.Order) {
	if s.events == nil {
		return
	}
	ev := OrderCreatedEvent{
		OrderID:       o.ID,
		OrderType:     o.OrderType,
		Items:         make([]OrderItemEvent, 0, len(o.Items)),
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		CouponCode:    o.CouponCode,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderItemEvent{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			TotalPriceCents: it.TotalPriceCents,
		})
	}
	if err := s.events.PublishOrderCreated(ctx, ev); err != nil {
		s.log.Warn("publish order.created failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, err := fetch(s.guard, ctx, "get order", func(ctx context.Context) (*models.Order, error) {
		return s.repos.Orders.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) FindByPhone(ctx context.Context, phone string) ([]*models.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "phone", Message: "is required"}}}
	}
	since := s.now().UTC().Add(-TrackingReadyWindow)
	return fetch(s.guard, ctx, "find orders by phone", func(ctx context.Context) ([]*models.Order, error) {
		return s.repos.Orders.FindByPhone(ctx, phone, since)
	})
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, *f.Status)
	}

	var (
		list  []*models.Order
		total int64
	)
	err := s.guard.run(ctx, "list orders", func(ctx context.Context) error {
		var err error
		list, total, err = s.repos.Orders.List(ctx, repository.OrderListFilter{
			Status:    f.Status,
			OrderType: f.OrderType,
			From:      f.From,
			To:        f.To,
			Limit:     f.Limit,
			Offset:    f.Offset,
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
