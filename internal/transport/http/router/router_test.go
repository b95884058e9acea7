package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"menu-service/internal/auth"
	"menu-service/internal/cart"
	"menu-service/internal/models"
	"menu-service/internal/pricing"
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"menu-service/internal/transport/http/handlers"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrders struct {
	create     func(ctx context.Context, in service.CreateOrderInput) (*models.Order, error)
	transition func(ctx context.Context, id uuid.UUID, requested string) (*service.TransitionResult, error)
	list       func(ctx context.Context, f service.ListFilter) ([]*models.Order, int64, error)
}

func (f *fakeOrders) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.Order, error) {
	return f.create(ctx, in)
}

func (f *fakeOrders) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, service.ErrOrderNotFound
}

func (f *fakeOrders) FindByPhone(ctx context.Context, phone string) ([]*models.Order, error) {
	if phone == "" {
		v := &service.ValidationError{}
		v.Add("phone", "is required")
		return nil, v
	}
	return nil, nil
}

func (f *fakeOrders) ListOrders(ctx context.Context, lf service.ListFilter) ([]*models.Order, int64, error) {
	return f.list(ctx, lf)
}

func (f *fakeOrders) TransitionStatus(ctx context.Context, id uuid.UUID, requested string) (*service.TransitionResult, error) {
	return f.transition(ctx, id, requested)
}

type fakeCoupons struct{ service.CouponService }

func (fakeCoupons) Validate(ctx context.Context, code string, subtotal int64) (*service.CouponQuote, error) {
	if code != "SAVE10" {
		return nil, service.ErrCouponNotFound
	}
	c := &models.Coupon{Code: code, DiscountType: models.DiscountPercentage, DiscountValue: 10, Status: models.CouponActive}
	return &service.CouponQuote{Coupon: c, Quote: pricing.Quote{SubtotalCents: subtotal, DiscountCents: subtotal / 10, TotalCents: subtotal - subtotal/10}}, nil
}

// QuoteCart drops any coupon except SAVE10, like a deactivated one.
func (fakeCoupons) QuoteCart(ctx context.Context, c *cart.Cart) (*service.CartQuote, error) {
	if len(c.Items) == 0 {
		return nil, service.ErrEmptyCart
	}
	var n *cart.Notice
	if c.Coupon != nil && c.Coupon.Code != "SAVE10" {
		c.RemoveCoupon()
		n = &cart.Notice{Code: cart.NoticeCouponRemoved, Message: "coupon is no longer valid and was removed"}
	}
	return &service.CartQuote{Cart: c, Quote: c.Quote(), Notice: n}, nil
}

type fakeInsights struct{ service.InsightsService }

type stubIntrospector struct{}

func (stubIntrospector) Introspect(_ context.Context, token string) (*auth.Claims, error) {
	if token != "staff-token" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: uuid.New(), Role: service.RoleStaff}, nil
}

func newTestRouter(orders *fakeOrders) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	return Router(Deps{
		Orders:       handlers.NewOrderHandler(orders, log),
		Coupons:      handlers.NewCouponHandler(fakeCoupons{}, log),
		Insights:     handlers.NewInsightsHandler(fakeInsights{}, log),
		Introspector: stubIntrospector{},
		Log:          log,
	})
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.BaseError {
	t.Helper()
	var e dto.BaseError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestHealth(t *testing.T) {
	rec := do(newTestRouter(&fakeOrders{}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	pid := uuid.New()
	var got service.CreateOrderInput
	orders := &fakeOrders{create: func(_ context.Context, in service.CreateOrderInput) (*models.Order, error) {
		got = in
		return &models.Order{ID: uuid.New(), Status: models.OrderStatusReceived, TotalCents: 5202}, nil
	}}
	r := newTestRouter(orders)

	rec := do(r, http.MethodPost, "/api/v1/orders", "", gin.H{
		"order_type":     "pickup",
		"customer_name":  "Ana",
		"customer_phone": "+5511999990000",
		"coupon_code":    "save10",
		"items":          []gin.H{{"product_id": pid.String(), "quantity": 2, "notes": "no onion"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.OrderTypePickup, got.OrderType)
	require.Len(t, got.Items, 1)
	assert.Equal(t, pid, got.Items[0].ProductID)
	assert.Equal(t, uint32(2), got.Items[0].Quantity)
}

func TestCreateOrder_BindingErrors(t *testing.T) {
	r := newTestRouter(&fakeOrders{})

	rec := do(r, http.MethodPost, "/api/v1/orders", "", gin.H{
		"order_type": "delivery",
		"items":      []gin.H{{"product_id": "nope", "quantity": 0}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "validation_error", e.Code)

	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, "oneof", fields["order_type"])
	assert.Equal(t, "uuid", fields["items[0].product_id"])
	assert.Equal(t, "required", fields["items[0].quantity"])
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{service.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
		{service.ErrCouponInactive, http.StatusBadRequest, "coupon_inactive"},
		{service.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
		{&service.TransitionError{From: models.OrderStatusReady, To: models.OrderStatusPreparing}, http.StatusConflict, "invalid_transition"},
		{service.ErrStatusMismatch, http.StatusConflict, "status_mismatch"},
		{service.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{service.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
		{&service.StoreError{Op: "update status", Err: errors.New("boom")}, http.StatusInternalServerError, "store_error"},
		{errors.New("???"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			orders := &fakeOrders{transition: func(context.Context, uuid.UUID, string) (*service.TransitionResult, error) {
				return nil, tc.err
			}}
			rec := do(newTestRouter(orders), http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", "staff-token", gin.H{"status": "preparing"})
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.kind, decodeError(t, rec).Code)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	id := uuid.New()
	orders := &fakeOrders{transition: func(_ context.Context, got uuid.UUID, requested string) (*service.TransitionResult, error) {
		assert.Equal(t, id, got)
		assert.Equal(t, "preparing", requested)
		return &service.TransitionResult{
			Order:   &models.Order{ID: id, Status: models.OrderStatusPreparing, UpdatedAt: time.Now()},
			Warning: "status updated, but live notification may have failed",
		}, nil
	}}
	r := newTestRouter(orders)

	rec := do(r, http.MethodPatch, "/api/v1/orders/"+id.String()+"/status", "", gin.H{"status": "preparing"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodPatch, "/api/v1/orders/"+id.String()+"/status", "staff-token", gin.H{"status": "preparing"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.TransitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.OrderStatusPreparing, resp.Order.Status)
	assert.NotEmpty(t, resp.Warning)

	rec = do(r, http.MethodPatch, "/api/v1/orders/not-a-uuid/status", "staff-token", gin.H{"status": "preparing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_Filters(t *testing.T) {
	var got service.ListFilter
	orders := &fakeOrders{list: func(_ context.Context, f service.ListFilter) ([]*models.Order, int64, error) {
		got = f
		return nil, 0, nil
	}}
	r := newTestRouter(orders)

	rec := do(r, http.MethodGet, "/api/v1/orders?status=PREPARING&from=2024-05-01T00:00:00Z", "staff-token", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.Status)
	assert.Equal(t, models.OrderStatusPreparing, *got.Status)
	require.NotNil(t, got.From)
	assert.Contains(t, rec.Body.String(), `"orders":[]`)
	assert.Contains(t, rec.Body.String(), `"limit":50`)

	rec = do(r, http.MethodGet, "/api/v1/orders?status=cooking", "staff-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", decodeError(t, rec).Code)

	rec = do(r, http.MethodGet, "/api/v1/orders?from=yesterday", "staff-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Code)
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(&fakeOrders{})

	rec := do(r, http.MethodGet, "/api/v1/orders/track", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "phone", decodeError(t, rec).Fields[0].Field)

	rec = do(r, http.MethodGet, "/api/v1/orders/track?phone=123", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/coupons/validate", "", gin.H{"code": "SAVE10", "subtotal_cents": 5780})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"discount_cents":578`)

	rec = do(r, http.MethodPost, "/api/v1/coupons/validate", "", gin.H{"code": "NOPE", "subtotal_cents": 100})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteCart(t *testing.T) {
	r := newTestRouter(&fakeOrders{})
	item := gin.H{"product_id": uuid.NewString(), "product_name": "Burger", "unit_price_cents": 2000, "quantity": 2}

	rec := do(r, http.MethodPost, "/api/v1/cart/quote", "", gin.H{
		"items":  []gin.H{item},
		"coupon": gin.H{"code": "OLD5", "discount_type": "fixed", "discount_value": 500, "status": "active"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var q service.CartQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	require.NotNil(t, q.Notice)
	assert.Equal(t, cart.NoticeCouponRemoved, q.Notice.Code)
	assert.Nil(t, q.Cart.Coupon)
	assert.Equal(t, int64(4000), q.Quote.TotalCents)

	rec = do(r, http.MethodPost, "/api/v1/cart/quote", "", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", decodeError(t, rec).Code)
}
