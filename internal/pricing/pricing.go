// Package pricing holds the pure money arithmetic shared by the cart and the
// order service. All amounts are integer cents.
package pricing

import "menu-service/internal/models"

// LineTotal = (unit + sum(options)) * quantity.
func LineTotal(unitCents int64, optionCents []int64, quantity uint32) int64 {
	each := unitCents
	for _, o := range optionCents {
		each += o
	}
	return each * int64(quantity)
}

func Subtotal(lines []int64) int64 {
	var sum int64
	for _, l := range lines {
		sum += l
	}
	return sum
}

// Total clamps at zero even though CalculateDiscount never exceeds subtotal.
func Total(subtotalCents, discountCents int64) int64 {
	t := subtotalCents - discountCents
	if t < 0 {
		return 0
	}
	return t
}

type Quote struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Compute prices a set of line totals with an optional coupon. Inactive
// coupons contribute no discount.
func Compute(lines []int64, coupon *models.Coupon) Quote {
	sub := Subtotal(lines)
	var disc int64
	if coupon != nil && coupon.IsActive() {
		disc = coupon.CalculateDiscount(sub)
	}
	return Quote{
		SubtotalCents: sub,
		DiscountCents: disc,
		TotalCents:    Total(sub, disc),
	}
}
