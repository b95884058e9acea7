package router

import (
	"menu-service/internal/transport/http/handlers"
	"menu-service/internal/transport/http/middleware"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Orders       *handlers.OrderHandler
	Coupons      *handlers.CouponHandler
	Insights     *handlers.InsightsHandler
	WS           gin.HandlerFunc
	Metrics      http.Handler
	Introspector middleware.Introspector
	Log          *zap.Logger
}

func Router(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api/v1")

	// kiosk / customer
	api.POST("/orders", d.Orders.Create)
	api.GET("/orders/track", d.Orders.Track)
	api.GET("/orders/:id", d.Orders.Get)
	api.POST("/coupons/validate", d.Coupons.Validate)
	api.POST("/cart/quote", d.Coupons.QuoteCart)

	staff := api.Group("", middleware.AuthRequired(d.Introspector, d.Log))
	staff.GET("/orders", d.Orders.List)
	staff.PATCH("/orders/:id/status", d.Orders.UpdateStatus)

	staff.GET("/coupons", d.Coupons.List)
	staff.POST("/coupons", d.Coupons.Create)
	staff.PUT("/coupons/:code", d.Coupons.Update)
	staff.DELETE("/coupons/:code", d.Coupons.Deactivate)
	staff.POST("/coupons/:code/activate", d.Coupons.Activate)

	staff.GET("/insights/customers", d.Insights.Customers)
	staff.GET("/insights/top-products", d.Insights.TopProducts)

	if d.WS != nil {
		staff.GET("/ws/orders", d.WS)
	}

	return r
}
