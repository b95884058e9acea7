package metrics

import (
	"menu-service/internal/models"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	c := New()
	c.TransitionAttempt(models.OrderStatusReceived, models.OrderStatusPreparing, "ok")
	c.TransitionAttempt(models.OrderStatusReceived, models.OrderStatusPreparing, "ok")
	c.OrderCreated(models.OrderTypePickup, 5202)
	c.StoreTimeout("get order")
	c.OrphansDeleted(3)
	c.ClientConnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("received", "preparing", "ok")))
	assert.Equal(t, 5202.0, testutil.ToFloat64(c.revenue.WithLabelValues("pickup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.timeouts.WithLabelValues("get order")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.orphans))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsClients))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "menu_orders_created_total"))
}
