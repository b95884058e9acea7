package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статус заказа на кухне
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
)

// transitions is the whole lifecycle: a fixed linear pipeline, ready is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusReceived:  {OrderStatusPreparing},
	OrderStatusPreparing: {OrderStatusReady},
	OrderStatusReady:     {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether to is a legal next status of s.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Next is the single forward move from s, if any.
func (s OrderStatus) Next() (OrderStatus, bool) {
	if next := transitions[s]; len(next) > 0 {
		return next[0], true
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// ParseOrderStatus accepts any casing and surrounding whitespace.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// ActiveStatuses are the ones still moving through the kitchen.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusReceived, OrderStatusPreparing}
}

type OrderType string

const (
	OrderTypePickup OrderType = "pickup"
	OrderTypeDineIn OrderType = "dine_in"
)

func (t OrderType) Valid() bool {
	return t == OrderTypePickup || t == OrderTypeDineIn
}

type Order struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderType     OrderType   `gorm:"type:text;not null" json:"order_type"`
	CustomerName  *string     `gorm:"type:text" json:"customer_name,omitempty"`
	CustomerPhone *string     `gorm:"type:text;index" json:"customer_phone,omitempty"`
	TableNumber   *int        `gorm:"type:int" json:"table_number,omitempty"`
	Status        OrderStatus `gorm:"type:text;not null;default:'received';index" json:"status"`
	SubtotalCents int64       `gorm:"not null;default:0" json:"subtotal_cents"`
	DiscountCents int64       `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents    int64       `gorm:"not null;default:0" json:"total_cents"`
	CouponCode    *string     `gorm:"type:text" json:"coupon_code,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps total bound to subtotal and discount.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	o.TotalCents = o.SubtotalCents - o.DiscountCents
	if o.TotalCents < 0 {
		o.TotalCents = 0
	}
	return nil
}

type OrderItem struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName       string    `gorm:"type:text;not null" json:"product_name"`
	ProductPriceCents int64     `gorm:"not null" json:"product_price_cents"`
	Quantity          uint32    `gorm:"type:int;not null" json:"quantity"`
	Position          int       `gorm:"not null;default:0" json:"position"`
	Notes             string    `gorm:"type:text;not null;default:''" json:"notes"`
	TotalPriceCents   int64     `gorm:"not null" json:"total_price_cents"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Options []OrderItemOption `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"options"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type OrderItemOption struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderItemID          uuid.UUID `gorm:"type:uuid;not null;index" json:"order_item_id"`
	GroupName            string    `gorm:"type:text;not null" json:"group_name"`
	OptionName           string    `gorm:"type:text;not null" json:"option_name"`
	AdditionalPriceCents int64     `gorm:"not null;default:0" json:"additional_price_cents"`
}

func (OrderItemOption) TableName() string { return "order_item_options" }

func (o *OrderItemOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Журнал переходов статусов
type OrderStatusLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"type:text;not null" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:text;not null" json:"to_status"`
	ChangedBy  *uuid.UUID  `gorm:"type:uuid" json:"changed_by,omitempty"`
	ChangedAt  time.Time   `gorm:"not null" json:"changed_at"`
}

func (OrderStatusLog) TableName() string { return "order_status_logs" }

func (l *OrderStatusLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
)

// Coupon is referenced from orders by code, never by id, so it is only ever
// deactivated. DiscountValue is a whole percent or an amount in cents.
type Coupon struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	DiscountType  DiscountType `gorm:"type:text;not null" json:"discount_type"`
	DiscountValue int64        `gorm:"not null" json:"discount_value"`
	Status        CouponStatus `gorm:"type:text;not null;default:'active'" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) IsActive() bool { return c.Status == CouponActive }

// CalculateDiscount never returns more than subtotal nor less than zero.
// Percentages round half-up to the cent.
func (c *Coupon) CalculateDiscount(subtotalCents int64) int64 {
	if subtotalCents <= 0 || c.DiscountValue <= 0 {
		return 0
	}
	var d int64
	switch c.DiscountType {
	case DiscountPercentage:
		d = (subtotalCents*c.DiscountValue + 50) / 100
	case DiscountFixed:
		d = c.DiscountValue
	default:
		return 0
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	return d
}

// Каталог: только чтение, заполняется сидом
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"type:text;not null" json:"name"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Options []ProductOption `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type ProductOption struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID            uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	GroupName            string    `gorm:"type:text;not null" json:"group_name"`
	Name                 string    `gorm:"type:text;not null" json:"name"`
	AdditionalPriceCents int64     `gorm:"not null;default:0" json:"additional_price_cents"`
}

func (ProductOption) TableName() string { return "product_options" }

func (o *ProductOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
