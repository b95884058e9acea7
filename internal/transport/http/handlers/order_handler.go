package handlers

import (
	"menu-service/internal/models"
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	in := service.CreateOrderInput{
		OrderType:     models.OrderType(req.OrderType),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TableNumber:   req.TableNumber,
		CouponCode:    req.CouponCode,
		Items:         make([]service.CreateOrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		item := service.CreateOrderItem{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		}
		for _, o := range it.OptionIDs {
			item.OptionIDs = append(item.OptionIDs, uuid.MustParse(o))
		}
		in.Items = append(in.Items, item)
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, "create order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Get handles GET /api/v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Track handles GET /api/v1/orders/track?phone=.
func (h *OrderHandler) Track(c *gin.Context) {
	orders, err := h.orders.FindByPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		writeError(c, h.log, "track orders", err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	c.JSON(http.StatusOK, dto.TrackOrdersResponse{Orders: orders})
}

// List handles GET /api/v1/orders (staff).
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	f := service.ListFilter{Limit: q.Limit, Offset: q.Offset}
	verr := &service.ValidationError{}
	if q.Status != "" {
		st, ok := models.ParseOrderStatus(q.Status)
		if !ok {
			writeError(c, h.log, "list orders", service.ErrInvalidStatus)
			return
		}
		f.Status = &st
	}
	if q.OrderType != "" {
		t := models.OrderType(q.OrderType)
		f.OrderType = &t
	}
	f.From = parseTime(verr, "from", q.From)
	f.To = parseTime(verr, "to", q.To)
	if len(verr.Fields) > 0 {
		writeError(c, h.log, "list orders", verr)
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "list orders", err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	limit := q.Limit
	if limit == 0 {
		limit = service.DefaultListLimit
	}
	c.JSON(http.StatusOK, dto.ListOrdersResponse{Orders: orders, Total: total, Limit: limit, Offset: q.Offset})
}

// UpdateStatus handles PATCH /api/v1/orders/:id/status (staff).
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}

	res, err := h.orders.TransitionStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, h.log, "transition status", err)
		return
	}
	c.JSON(http.StatusOK, dto.TransitionResponse{Order: res.Order, Warning: res.Warning})
}

func (h *OrderHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", []dto.FieldError{
			{Field: "id", Message: "must be a uuid", Tag: "uuid"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

func parseTime(verr *service.ValidationError, field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		verr.Add(field, "must be an RFC3339 timestamp")
		return nil
	}
	return &t
}
