package service

import (
	"context"
	"menu-service/internal/models"
	"time"

	"github.com/google/uuid"
)

type CreateOrderItem struct {
	ProductID uuid.UUID
	Quantity  uint32
	Notes     string
	OptionIDs []uuid.UUID
}

type CreateOrderInput struct {
	OrderType     models.OrderType
	CustomerName  string
	CustomerPhone string
	TableNumber   *int
	CouponCode    string
	Items         []CreateOrderItem
}

type ListFilter struct {
	Status    *models.OrderStatus
	OrderType *models.OrderType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// TransitionResult is the post-write snapshot. Warning is set when the
// change was stored but a live notification could not be sent.
type TransitionResult struct {
	Order   *models.Order `json:"order"`
	Warning string        `json:"warning,omitempty"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPhone(ctx context.Context, phone string) ([]*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, requested string) (*TransitionResult, error)
}
