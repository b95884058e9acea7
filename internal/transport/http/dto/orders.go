package dto

import "menu-service/internal/models"

type CreateOrderItemRequest struct {
	ProductID string   `json:"product_id" binding:"required,uuid"`
	Quantity  uint32   `json:"quantity" binding:"required,min=1,max=99"`
	Notes     string   `json:"notes" binding:"max=200"`
	OptionIDs []string `json:"option_ids" binding:"dive,uuid"`
}

type CreateOrderRequest struct {
	OrderType     string                   `json:"order_type" binding:"required,oneof=pickup dine_in"`
	CustomerName  string                   `json:"customer_name" binding:"max=100"`
	CustomerPhone string                   `json:"customer_phone" binding:"max=32"`
	TableNumber   *int                     `json:"table_number" binding:"omitempty,min=1"`
	CouponCode    string                   `json:"coupon_code" binding:"max=32"`
	Items         []CreateOrderItemRequest `json:"items" binding:"dive"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type TransitionResponse struct {
	Order   *models.Order `json:"order"`
	Warning string        `json:"warning,omitempty"`
}

type ListOrdersQuery struct {
	Status    string `form:"status"`
	OrderType string `form:"order_type" binding:"omitempty,oneof=pickup dine_in"`
	From      string `form:"from"`
	To        string `form:"to"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

type ListOrdersResponse struct {
	Orders []*models.Order `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type TrackOrdersResponse struct {
	Orders []*models.Order `json:"orders"`
}
