// Package cart is the customer's pre-checkout basket. It lives on the client
// and is only persisted locally, so a reload must re-check the applied coupon.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"menu-service/internal/models"
	"menu-service/internal/pricing"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
)

type Option struct {
	GroupName            string `json:"group_name"`
	Name                 string `json:"name"`
	AdditionalPriceCents int64  `json:"additional_price_cents"`
}

type Item struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       uint32    `json:"quantity"`
	Notes          string    `json:"notes"`
	Options        []Option  `json:"options"`
}

// Key identifies a line: same product, same notes and the same option set in
// any order collapse into one line.
func (i Item) Key() string {
	names := make([]string, 0, len(i.Options))
	for _, o := range i.Options {
		names = append(names, o.GroupName+"="+o.Name)
	}
	sort.Strings(names)
	return i.ProductID.String() + "|" + strings.TrimSpace(i.Notes) + "|" + strings.Join(names, ",")
}

func (i Item) TotalCents() int64 {
	opts := make([]int64, 0, len(i.Options))
	for _, o := range i.Options {
		opts = append(opts, o.AdditionalPriceCents)
	}
	return pricing.LineTotal(i.UnitPriceCents, opts, i.Quantity)
}

// Notice is a user-facing message produced by cart maintenance.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const NoticeCouponRemoved = "coupon_removed"

// CouponSource looks a coupon up by normalized code; nil means it does not exist.
type CouponSource interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type Cart struct {
	Items  []Item         `json:"items"`
	Coupon *models.Coupon `json:"coupon,omitempty"`
}

func New() *Cart { return &Cart{} }

// Add merges into an existing line with the same key or appends a new one.
func (c *Cart) Add(it Item) error {
	if it.Quantity == 0 {
		return ErrInvalidQuantity
	}
	key := it.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity += it.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, it)
	return nil
}

// SetQuantity updates a line; zero removes it.
func (c *Cart) SetQuantity(key string, qty uint32) error {
	for i := range c.Items {
		if c.Items[i].Key() != key {
			continue
		}
		if qty == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = qty
		return nil
	}
	return ErrItemNotFound
}

func (c *Cart) Remove(key string) error { return c.SetQuantity(key, 0) }

func (c *Cart) Clear() {
	c.Items = nil
	c.Coupon = nil
}

func (c *Cart) ApplyCoupon(cp *models.Coupon) { c.Coupon = cp }

func (c *Cart) RemoveCoupon() { c.Coupon = nil }

func (c *Cart) Quote() pricing.Quote {
	lines := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, it.TotalCents())
	}
	return pricing.Compute(lines, c.Coupon)
}

// Revalidate re-reads the applied coupon by code. A coupon that vanished or
// was deactivated is dropped and reported; lookup errors leave the cart as is.
func (c *Cart) Revalidate(ctx context.Context, src CouponSource) (*Notice, error) {
	if c.Coupon == nil {
		return nil, nil
	}
	code := models.NormalizeCouponCode(c.Coupon.Code)
	fresh, err := src.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("revalidate coupon %s: %w", code, err)
	}
	if fresh == nil || !fresh.IsActive() {
		c.Coupon = nil
		return &Notice{
			Code:    NoticeCouponRemoved,
			Message: fmt.Sprintf("coupon %s is no longer valid and was removed", code),
		}, nil
	}
	c.Coupon = fresh
	return nil, nil
}

func (c *Cart) Marshal() ([]byte, error) { return json.Marshal(c) }

func Unmarshal(data []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
