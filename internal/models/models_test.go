package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusReceived, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReceived, OrderStatusReady, false},
		{OrderStatusReady, OrderStatusReceived, false},
		{OrderStatusPreparing, OrderStatusReceived, false},
		{OrderStatusReady, OrderStatusReady, false},
		{OrderStatus("cancelled"), OrderStatusReady, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderStatusNext(t *testing.T) {
	next, ok := OrderStatusReceived.Next()
	require.True(t, ok)
	assert.Equal(t, OrderStatusPreparing, next)

	next, ok = OrderStatusPreparing.Next()
	require.True(t, ok)
	assert.Equal(t, OrderStatusReady, next)

	_, ok = OrderStatusReady.Next()
	assert.False(t, ok)
	assert.True(t, OrderStatusReady.Terminal())
	assert.False(t, OrderStatusReceived.Terminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("  Preparing ")
	require.True(t, ok)
	assert.Equal(t, OrderStatusPreparing, s)

	_, ok = ParseOrderStatus("done")
	assert.False(t, ok)
}

func TestCouponCalculateDiscount(t *testing.T) {
	pct := Coupon{DiscountType: DiscountPercentage, DiscountValue: 15}
	assert.Equal(t, int64(150), pct.CalculateDiscount(1000))
	// 15% of 1003 = 150.45
	assert.Equal(t, int64(150), pct.CalculateDiscount(1003))
	// 15% of 1010 = 151.5 rounds up
	assert.Equal(t, int64(152), pct.CalculateDiscount(1010))
	assert.Equal(t, int64(0), pct.CalculateDiscount(0))

	full := Coupon{DiscountType: DiscountPercentage, DiscountValue: 100}
	assert.Equal(t, int64(999), full.CalculateDiscount(999))

	fixed := Coupon{DiscountType: DiscountFixed, DiscountValue: 500}
	assert.Equal(t, int64(500), fixed.CalculateDiscount(1200))
	assert.Equal(t, int64(300), fixed.CalculateDiscount(300))

	unknown := Coupon{DiscountType: "bogo", DiscountValue: 5}
	assert.Equal(t, int64(0), unknown.CalculateDiscount(1000))
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCouponCode("  save10 "))
}
