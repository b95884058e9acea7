package dto

type CouponRequest struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue int64  `json:"discount_value" binding:"required,gt=0"`
}

type ValidateCouponRequest struct {
	Code          string `json:"code" binding:"required"`
	SubtotalCents int64  `json:"subtotal_cents" binding:"min=0"`
}

type InsightsQuery struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
