package handlers

import (
	"menu-service/internal/cart"
	"menu-service/internal/models"
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CouponHandler struct {
	coupons service.CouponService
	log     *zap.Logger
}

func NewCouponHandler(coupons service.CouponService, log *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, log: log}
}

// Validate handles POST /api/v1/coupons/validate (public).
func (h *CouponHandler) Validate(c *gin.Context) {
	var req dto.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	q, err := h.coupons.Validate(c.Request.Context(), req.Code, req.SubtotalCents)
	if err != nil {
		writeError(c, h.log, "validate coupon", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// QuoteCart handles POST /api/v1/cart/quote (public): the customer client
// sends its restored cart on reload.
func (h *CouponHandler) QuoteCart(c *gin.Context) {
	var req cart.Cart
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	q, err := h.coupons.QuoteCart(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.log, "quote cart", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// List handles GET /api/v1/coupons?status=.
func (h *CouponHandler) List(c *gin.Context) {
	var status *models.CouponStatus
	switch s := models.CouponStatus(c.Query("status")); s {
	case "":
	case models.CouponActive, models.CouponInactive:
		status = &s
	default:
		verr := &service.ValidationError{}
		verr.Add("status", "must be active or inactive")
		writeError(c, h.log, "list coupons", verr)
		return
	}
	list, err := h.coupons.List(c.Request.Context(), status)
	if err != nil {
		writeError(c, h.log, "list coupons", err)
		return
	}
	if list == nil {
		list = []models.Coupon{}
	}
	c.JSON(http.StatusOK, gin.H{"coupons": list})
}

// Create handles POST /api/v1/coupons (admin).
func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	cp, err := h.coupons.Create(c.Request.Context(), couponInput(req))
	if err != nil {
		writeError(c, h.log, "create coupon", err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}

// Update handles PUT /api/v1/coupons/:code (admin). The code itself is immutable.
func (h *CouponHandler) Update(c *gin.Context) {
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, err)
		return
	}
	cp, err := h.coupons.Update(c.Request.Context(), c.Param("code"), couponInput(req))
	if err != nil {
		writeError(c, h.log, "update coupon", err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// Deactivate handles DELETE /api/v1/coupons/:code (admin, soft delete).
func (h *CouponHandler) Deactivate(c *gin.Context) {
	cp, err := h.coupons.Deactivate(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.log, "deactivate coupon", err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// Activate handles POST /api/v1/coupons/:code/activate (admin).
func (h *CouponHandler) Activate(c *gin.Context) {
	cp, err := h.coupons.Activate(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.log, "activate coupon", err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func couponInput(req dto.CouponRequest) service.CouponInput {
	return service.CouponInput{
		Code:          req.Code,
		DiscountType:  models.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
	}
}
