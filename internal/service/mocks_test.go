package service_test

import (
	"context"
	"menu-service/internal/models"
	"menu-service/internal/repository"
	"menu-service/internal/service"
	"time"

	"github.com/google/uuid"
)

var (
	_ repository.OrderRepo     = (*MockOrderRepo)(nil)
	_ repository.OrderItemRepo = (*MockOrderItemRepo)(nil)
	_ repository.CouponRepo    = (*MockCouponRepo)(nil)
	_ repository.StatusLogRepo = (*MockStatusLogRepo)(nil)
)

// MockOrderRepo
type MockOrderRepo struct {
	CreateFunc             func(ctx context.Context, o *models.Order) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatusGuardFunc  func(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error)
	DeleteFunc             func(ctx context.Context, id uuid.UUID) (int64, error)
	ListFunc               func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error)
	FindByPhoneFunc        func(ctx context.Context, phone string, readySince time.Time) ([]*models.Order, error)
	ListCreatedBetweenFunc func(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	FindOrphansFunc        func(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
	ExistsFunc             func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) UpdateStatusGuard(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error) {
	if m.UpdateStatusGuardFunc != nil {
		return m.UpdateStatusGuardFunc(ctx, id, from, to, at)
	}
	return true, nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return 1, nil
}

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *MockOrderRepo) FindByPhone(ctx context.Context, phone string, readySince time.Time) ([]*models.Order, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone, readySince)
	}
	return nil, nil
}

func (m *MockOrderRepo) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	if m.ListCreatedBetweenFunc != nil {
		return m.ListCreatedBetweenFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *MockOrderRepo) FindOrphans(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	if m.FindOrphansFunc != nil {
		return m.FindOrphansFunc(ctx, createdBefore)
	}
	return nil, nil
}

func (m *MockOrderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

// MockOrderItemRepo
type MockOrderItemRepo struct {
	BulkCreateFunc    func(ctx context.Context, items []models.OrderItem) error
	CreateOptionsFunc func(ctx context.Context, opts []models.OrderItemOption) error
	GetByOrderIDFunc  func(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

func (m *MockOrderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if m.BulkCreateFunc != nil {
		return m.BulkCreateFunc(ctx, items)
	}
	return nil
}

func (m *MockOrderItemRepo) CreateOptions(ctx context.Context, opts []models.OrderItemOption) error {
	if m.CreateOptionsFunc != nil {
		return m.CreateOptionsFunc(ctx, opts)
	}
	return nil
}

func (m *MockOrderItemRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return nil, nil
}

// MockCouponRepo
type MockCouponRepo struct {
	CreateFunc         func(ctx context.Context, c *models.Coupon) error
	GetByCodeFunc      func(ctx context.Context, code string) (*models.Coupon, error)
	ListFunc           func(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error)
	UpdateDiscountFunc func(ctx context.Context, code string, typ models.DiscountType, value int64) (bool, error)
	SetStatusFunc      func(ctx context.Context, code string, status models.CouponStatus) (bool, error)
}

func (m *MockCouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil
}

func (m *MockCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *MockCouponRepo) List(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status)
	}
	return nil, nil
}

func (m *MockCouponRepo) UpdateDiscount(ctx context.Context, code string, typ models.DiscountType, value int64) (bool, error) {
	if m.UpdateDiscountFunc != nil {
		return m.UpdateDiscountFunc(ctx, code, typ, value)
	}
	return false, nil
}

func (m *MockCouponRepo) SetStatus(ctx context.Context, code string, status models.CouponStatus) (bool, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, code, status)
	}
	return false, nil
}

// MockStatusLogRepo
type MockStatusLogRepo struct {
	CreateFunc      func(ctx context.Context, l *models.OrderStatusLog) error
	ListByOrderFunc func(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error)
}

func (m *MockStatusLogRepo) Create(ctx context.Context, l *models.OrderStatusLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, l)
	}
	return nil
}

func (m *MockStatusLogRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderID)
	}
	return nil, nil
}

// MockPricing
type MockPricing struct {
	ProductsFunc func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

func (m *MockPricing) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx, ids)
	}
	return map[uuid.UUID]*models.Product{}, nil
}

// MockEventBus
type MockEventBus struct {
	PublishOrderCreatedFunc       func(ctx context.Context, e service.OrderCreatedEvent) error
	PublishOrderStatusChangedFunc func(ctx context.Context, e service.OrderStatusChangedEvent) error
}

func (m *MockEventBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	if m.PublishOrderCreatedFunc != nil {
		return m.PublishOrderCreatedFunc(ctx, e)
	}
	return nil
}

func (m *MockEventBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	if m.PublishOrderStatusChangedFunc != nil {
		return m.PublishOrderStatusChangedFunc(ctx, e)
	}
	return nil
}

// MockBroadcaster
type MockBroadcaster struct {
	BroadcastStatusFunc func(ctx context.Context, e service.OrderStatusChangedEvent) error
}

func (m *MockBroadcaster) BroadcastStatus(ctx context.Context, e service.OrderStatusChangedEvent) error {
	if m.BroadcastStatusFunc != nil {
		return m.BroadcastStatusFunc(ctx, e)
	}
	return nil
}

type mocks struct {
	orders  *MockOrderRepo
	items   *MockOrderItemRepo
	coupons *MockCouponRepo
	logs    *MockStatusLogRepo
}

func newMocks() *mocks {
	return &mocks{
		orders:  &MockOrderRepo{},
		items:   &MockOrderItemRepo{},
		coupons: &MockCouponRepo{},
		logs:    &MockStatusLogRepo{},
	}
}

// repos without Tx drive the saga path.
func (m *mocks) repos() service.Repos {
	return service.Repos{
		Orders:     m.orders,
		Items:      m.items,
		Coupons:    m.coupons,
		StatusLogs: m.logs,
	}
}

// txRepos runs the callback against the same mocks, as a transaction would.
func (m *mocks) txRepos() service.Repos {
	r := m.repos()
	r.Tx = func(ctx context.Context, fn func(tx service.Repos) error) error {
		return fn(m.repos())
	}
	return r
}

func staffCtx() context.Context {
	ctx := service.WithUserID(context.Background(), uuid.New())
	return service.WithRole(ctx, service.RoleStaff)
}

func adminCtx() context.Context {
	ctx := service.WithUserID(context.Background(), uuid.New())
	return service.WithRole(ctx, service.RoleAdmin)
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }
