package service_test

import (
	"context"
	"errors"
	"menu-service/internal/models"
	"menu-service/internal/repository"
	"menu-service/internal/service"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type catalog struct {
	burger *models.Product
	bacon  models.ProductOption
	cheese models.ProductOption
}

func newCatalog() catalog {
	pid := uuid.New()
	bacon := models.ProductOption{ID: uuid.New(), ProductID: pid, GroupName: "extras", Name: "bacon", AdditionalPriceCents: 300}
	cheese := models.ProductOption{ID: uuid.New(), ProductID: pid, GroupName: "extras", Name: "cheese", AdditionalPriceCents: 150}
	return catalog{
		burger: &models.Product{ID: pid, Name: "Burger", PriceCents: 2590, IsActive: true, Options: []models.ProductOption{bacon, cheese}},
		bacon:  bacon,
		cheese: cheese,
	}
}

func (c catalog) pricing() *MockPricing {
	return &MockPricing{ProductsFunc: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
		return map[uuid.UUID]*models.Product{c.burger.ID: c.burger}, nil
	}}
}

func pickupInput(c catalog, coupon string) service.CreateOrderInput {
	return service.CreateOrderInput{
		OrderType:     models.OrderTypePickup,
		CustomerName:  "Ana",
		CustomerPhone: "+5511999990000",
		CouponCode:    coupon,
		Items: []service.CreateOrderItem{
			{ProductID: c.burger.ID, Quantity: 2, Notes: " no onion ", OptionIDs: []uuid.UUID{c.bacon.ID}},
		},
	}
}

func TestCreateOrder_TransactionalWithCoupon(t *testing.T) {
	m := newMocks()
	c := newCatalog()
	m.coupons.GetByCodeFunc = func(ctx context.Context, code string) (*models.Coupon, error) {
		if code != "TEN" {
			t.Fatalf("coupon looked up as %q", code)
		}
		return &models.Coupon{Code: code, DiscountType: models.DiscountPercentage, DiscountValue: 10, Status: models.CouponActive}, nil
	}
	var (
		createdOrder *models.Order
		items        []models.OrderItem
		opts         []models.OrderItemOption
	)
	m.orders.CreateFunc = func(ctx context.Context, o *models.Order) error { createdOrder = o; return nil }
	m.items.BulkCreateFunc = func(ctx context.Context, in []models.OrderItem) error { items = in; return nil }
	m.items.CreateOptionsFunc = func(ctx context.Context, in []models.OrderItemOption) error { opts = in; return nil }

	var event service.OrderCreatedEvent
	bus := &MockEventBus{PublishOrderCreatedFunc: func(ctx context.Context, e service.OrderCreatedEvent) error {
		event = e
		return nil
	}}

	txCalls := 0
	repos := m.txRepos()
	inner := repos.Tx
	repos.Tx = func(ctx context.Context, fn func(tx service.Repos) error) error {
		txCalls++
		return inner(ctx, fn)
	}

	svc := service.NewOrderService(repos, c.pricing(), bus, zap.NewNop())
	ord, err := svc.CreateOrder(context.Background(), pickupInput(c, " ten "))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if txCalls != 1 {
		t.Fatalf("expected one transaction, got %d", txCalls)
	}
	if ord.SubtotalCents != 5780 || ord.DiscountCents != 578 || ord.TotalCents != 5202 {
		t.Fatalf("totals: %d/%d/%d", ord.SubtotalCents, ord.DiscountCents, ord.TotalCents)
	}
	if ord.Status != models.OrderStatusReceived || ord.CouponCode == nil || *ord.CouponCode != "TEN" {
		t.Fatalf("unexpected order: %+v", ord)
	}
	if createdOrder == nil || len(items) != 1 || len(opts) != 1 {
		t.Fatalf("persisted order=%v items=%d opts=%d", createdOrder != nil, len(items), len(opts))
	}
	it := items[0]
	if it.OrderID != ord.ID || it.ProductName != "Burger" || it.ProductPriceCents != 2590 || it.Notes != "no onion" || it.TotalPriceCents != 5780 {
		t.Fatalf("item snapshot: %+v", it)
	}
	if opts[0].OrderItemID != it.ID || opts[0].OptionName != "bacon" || opts[0].AdditionalPriceCents != 300 {
		t.Fatalf("option snapshot: %+v", opts[0])
	}
	if event.OrderID != ord.ID || event.TotalCents != 5202 || len(event.Items) != 1 {
		t.Fatalf("event: %+v", event)
	}
}

func TestCreateOrder_FixedCouponCappedAtSubtotal(t *testing.T) {
	m := newMocks()
	c := newCatalog()
	m.coupons.GetByCodeFunc = func(ctx context.Context, code string) (*models.Coupon, error) {
		return &models.Coupon{Code: code, DiscountType: models.DiscountFixed, DiscountValue: 10000, Status: models.CouponActive}, nil
	}
	in := pickupInput(c, "HUNDRED")
	in.Items = []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 1}}

	svc := service.NewOrderService(m.txRepos(), c.pricing(), nil, zap.NewNop())
	ord, err := svc.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if ord.SubtotalCents != 2590 || ord.DiscountCents != 2590 || ord.TotalCents != 0 {
		t.Fatalf("totals: %d/%d/%d", ord.SubtotalCents, ord.DiscountCents, ord.TotalCents)
	}
}

func TestCreateOrder_SagaCompensatesOnItemFailure(t *testing.T) {
	m := newMocks()
	c := newCatalog()
	var created, deleted uuid.UUID
	m.orders.CreateFunc = func(ctx context.Context, o *models.Order) error { created = o.ID; return nil }
	m.items.BulkCreateFunc = func(ctx context.Context, items []models.OrderItem) error {
		return errors.New("insert failed")
	}
	m.orders.DeleteFunc = func(ctx context.Context, id uuid.UUID) (int64, error) {
		deleted = id
		return 1, nil
	}

	svc := service.NewOrderService(m.repos(), c.pricing(), nil, zap.NewNop())
	_, err := svc.CreateOrder(context.Background(), pickupInput(c, ""))
	if service.KindOf(err) != service.KindStore {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if created == uuid.Nil || deleted != created {
		t.Fatalf("compensating delete: created=%s deleted=%s", created, deleted)
	}
}

func TestCreateOrder_SagaCompensatesOnOptionFailure(t *testing.T) {
	m := newMocks()
	c := newCatalog()
	deletes := 0
	m.items.CreateOptionsFunc = func(ctx context.Context, opts []models.OrderItemOption) error {
		return errors.New("insert failed")
	}
	m.orders.DeleteFunc = func(ctx context.Context, id uuid.UUID) (int64, error) {
		deletes++
		return 1, nil
	}

	svc := service.NewOrderService(m.repos(), c.pricing(), nil, zap.NewNop())
	if _, err := svc.CreateOrder(context.Background(), pickupInput(c, "")); err == nil {
		t.Fatalf("expected error")
	}
	if deletes != 1 {
		t.Fatalf("expected one compensating delete, got %d", deletes)
	}
}

func TestCreateOrder_SagaNoCompensationWhenOrderInsertFails(t *testing.T) {
	m := newMocks()
	c := newCatalog()
	m.orders.CreateFunc = func(ctx context.Context, o *models.Order) error { return errors.New("boom") }
	m.orders.DeleteFunc = func(ctx context.Context, id uuid.UUID) (int64, error) {
		t.Fatalf("nothing to compensate")
		return 0, nil
	}
	svc := service.NewOrderService(m.repos(), c.pricing(), nil, zap.NewNop())
	if _, err := svc.CreateOrder(context.Background(), pickupInput(c, "")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	c := newCatalog()
	table := 4
	cases := []struct {
		name  string
		in    service.CreateOrderInput
		kind  service.Kind
		field string
	}{
		{"empty cart", service.CreateOrderInput{OrderType: models.OrderTypeDineIn, TableNumber: &table}, service.KindEmptyCart, ""},
		{"pickup without phone", service.CreateOrderInput{
			OrderType: models.OrderTypePickup, CustomerName: "Ana",
			Items: []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 1}},
		}, service.KindValidation, "customer_phone"},
		{"dine in without table", service.CreateOrderInput{
			OrderType: models.OrderTypeDineIn,
			Items:     []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 1}},
		}, service.KindValidation, "table_number"},
		{"unknown type", service.CreateOrderInput{
			OrderType: "delivery",
			Items:     []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 1}},
		}, service.KindValidation, "order_type"},
		{"zero quantity", service.CreateOrderInput{
			OrderType: models.OrderTypeDineIn, TableNumber: &table,
			Items: []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 0}},
		}, service.KindValidation, "items[0].quantity"},
		{"unknown product", service.CreateOrderInput{
			OrderType: models.OrderTypeDineIn, TableNumber: &table,
			Items: []service.CreateOrderItem{{ProductID: uuid.New(), Quantity: 1}},
		}, service.KindValidation, "items[0].product_id"},
		{"foreign option", service.CreateOrderInput{
			OrderType: models.OrderTypeDineIn, TableNumber: &table,
			Items: []service.CreateOrderItem{{ProductID: c.burger.ID, Quantity: 1, OptionIDs: []uuid.UUID{uuid.New()}}},
		}, service.KindValidation, "items[0].option_ids"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMocks()
			m.orders.CreateFunc = func(ctx context.Context, o *models.Order) error {
				t.Fatalf("nothing should be written")
				return nil
			}
			svc := service.NewOrderService(m.txRepos(), c.pricing(), nil, zap.NewNop())
			_, err := svc.CreateOrder(context.Background(), tc.in)
			if service.KindOf(err) != tc.kind {
				t.Fatalf("kind = %v (%v), want %v", service.KindOf(err), err, tc.kind)
			}
			if tc.field == "" {
				return
			}
			var ve *service.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError")
			}
			found := false
			for _, f := range ve.Fields {
				found = found || f.Field == tc.field
			}
			if !found {
				t.Fatalf("field %s not reported: %+v", tc.field, ve.Fields)
			}
		})
	}
}

func TestCreateOrder_CouponProblems(t *testing.T) {
	c := newCatalog()
	m := newMocks()
	svc := service.NewOrderService(m.txRepos(), c.pricing(), nil, zap.NewNop())

	if _, err := svc.CreateOrder(context.Background(), pickupInput(c, "NOPE")); service.KindOf(err) != service.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	m.coupons.GetByCodeFunc = func(ctx context.Context, code string) (*models.Coupon, error) {
		return &models.Coupon{Code: code, DiscountType: models.DiscountFixed, DiscountValue: 100, Status: models.CouponInactive}, nil
	}
	if _, err := svc.CreateOrder(context.Background(), pickupInput(c, "OLD")); service.KindOf(err) != service.KindCouponInactive {
		t.Fatalf("expected CouponInactive, got %v", err)
	}
}

func TestCreateOrder_Timeout(t *testing.T) {
	c := newCatalog()
	m := newMocks()
	m.orders.CreateFunc = func(ctx context.Context, o *models.Order) error {
		<-ctx.Done()
		return ctx.Err()
	}
	svc := service.NewOrderService(m.txRepos(), c.pricing(), nil, zap.NewNop(), service.WithStoreTimeout(10*time.Millisecond))
	if _, err := svc.CreateOrder(context.Background(), pickupInput(c, "")); service.KindOf(err) != service.KindTimeout {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestFindByPhone_UsesReadyWindow(t *testing.T) {
	m := newMocks()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var since time.Time
	m.orders.FindByPhoneFunc = func(ctx context.Context, phone string, readySince time.Time) ([]*models.Order, error) {
		if phone != "+5511" {
			t.Fatalf("phone = %q", phone)
		}
		since = readySince
		return nil, nil
	}
	svc := service.NewOrderService(m.txRepos(), &MockPricing{}, nil, zap.NewNop(), service.WithClock(func() time.Time { return now }))

	if _, err := svc.FindByPhone(context.Background(), " +5511 "); err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if !since.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("readySince = %v", since)
	}
	if _, err := svc.FindByPhone(context.Background(), "  "); service.KindOf(err) != service.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListOrders_DefaultsAndAuth(t *testing.T) {
	m := newMocks()
	var got repository.OrderListFilter
	m.orders.ListFunc = func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
		got = f
		return []*models.Order{{ID: uuid.New()}}, 1, nil
	}
	svc := service.NewOrderService(m.txRepos(), &MockPricing{}, nil, zap.NewNop())

	if _, _, err := svc.ListOrders(context.Background(), service.ListFilter{}); service.KindOf(err) != service.KindNotAuthenticated {
		t.Fatalf("expected NotAuthenticated, got %v", err)
	}
	list, total, err := svc.ListOrders(staffCtx(), service.ListFilter{Offset: -5})
	if err != nil || len(list) != 1 || total != 1 {
		t.Fatalf("ListOrders: %v %d %v", list, total, err)
	}
	if got.Limit != 50 || got.Offset != 0 {
		t.Fatalf("filter defaults: %+v", got)
	}
}
