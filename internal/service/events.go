package service

import (
	"context"
	"menu-service/internal/models"
	"time"

	"github.com/google/uuid"
)

type OrderItemEvent struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        uint32    `json:"quantity"`
	TotalPriceCents int64     `json:"total_price_cents"`
}

type OrderCreatedEvent struct {
	OrderID       uuid.UUID        `json:"order_id"`
	OrderType     models.OrderType `json:"order_type"`
	Items         []OrderItemEvent `json:"items"`
	SubtotalCents int64            `json:"subtotal_cents"`
	DiscountCents int64            `json:"discount_cents"`
	TotalCents    int64            `json:"total_cents"`
	CouponCode    *string          `json:"coupon_code,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID          `json:"order_id"`
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
	ChangedBy *uuid.UUID         `json:"changed_by,omitempty"`
	ChangedAt time.Time          `json:"changed_at"`
}

// EventBus carries durable domain events to downstream consumers.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
}

// Broadcaster is the fire-and-forget per-order hint layered over the change feed.
type Broadcaster interface {
	BroadcastStatus(ctx context.Context, e OrderStatusChangedEvent) error
}

// Observer receives operational counters; the metrics package implements it.
type Observer interface {
	TransitionAttempt(from, to models.OrderStatus, outcome string)
	OrderCreated(t models.OrderType, totalCents int64)
	StoreTimeout(op string)
}

type nopObserver struct{}

func (nopObserver) TransitionAttempt(models.OrderStatus, models.OrderStatus, string) {}
func (nopObserver) OrderCreated(models.OrderType, int64)                             {}
func (nopObserver) StoreTimeout(string)                                              {}
