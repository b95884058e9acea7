package handlers

import (
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultInsightsWindow = 30 * 24 * time.Hour

type InsightsHandler struct {
	insights service.InsightsService
	log      *zap.Logger
	now      func() time.Time
}

func NewInsightsHandler(insights service.InsightsService, log *zap.Logger) *InsightsHandler {
	return &InsightsHandler{insights: insights, log: log, now: time.Now}
}

// Customers handles GET /api/v1/insights/customers?from=&to=.
func (h *InsightsHandler) Customers(c *gin.Context) {
	_, from, to, ok := h.window(c)
	if !ok {
		return
	}
	list, err := h.insights.Customers(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, h.log, "customer insights", err)
		return
	}
	if list == nil {
		list = []service.CustomerSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"customers": list, "from": from, "to": to})
}

// TopProducts handles GET /api/v1/insights/top-products?from=&to=&limit=.
func (h *InsightsHandler) TopProducts(c *gin.Context) {
	q, from, to, ok := h.window(c)
	if !ok {
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = 10
	}
	list, err := h.insights.TopProducts(c.Request.Context(), from, to, limit)
	if err != nil {
		writeError(c, h.log, "top products", err)
		return
	}
	if list == nil {
		list = []service.ProductRanking{}
	}
	c.JSON(http.StatusOK, gin.H{"products": list, "from": from, "to": to})
}

// window defaults to the last 30 days.
func (h *InsightsHandler) window(c *gin.Context) (dto.InsightsQuery, time.Time, time.Time, bool) {
	var q dto.InsightsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, err)
		return q, time.Time{}, time.Time{}, false
	}
	verr := &service.ValidationError{}
	to := h.now()
	if t := parseTime(verr, "to", q.To); t != nil {
		to = *t
	}
	from := to.Add(-defaultInsightsWindow)
	if f := parseTime(verr, "from", q.From); f != nil {
		from = *f
	}
	if len(verr.Fields) > 0 {
		writeError(c, h.log, "insights", verr)
		return q, time.Time{}, time.Time{}, false
	}
	return q, from, to, true
}
