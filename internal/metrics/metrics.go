// Package metrics exposes prometheus collectors for the order pipeline.
package metrics

import (
	"menu-service/internal/models"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors implements service.Observer.
type Collectors struct {
	reg         *prometheus.Registry
	transitions *prometheus.CounterVec
	created     *prometheus.CounterVec
	revenue     *prometheus.CounterVec
	timeouts    *prometheus.CounterVec
	wsClients   prometheus.Gauge
	orphans     prometheus.Counter
}

func New() *Collectors {
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "order_transitions_total",
			Help:      "Order status transition attempts by outcome.",
		}, []string{"from", "to", "outcome"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "orders_created_total",
			Help:      "Orders created by type.",
		}, []string{"order_type"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "order_revenue_cents_total",
			Help:      "Sum of order totals in cents.",
		}, []string{"order_type"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "store_timeouts_total",
			Help:      "Store calls abandoned after the deadline.",
		}, []string{"op"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "menu",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "orphan_orders_deleted_total",
			Help:      "Orders without items removed by the sweeper.",
		}),
	}
	c.reg.MustRegister(
		c.transitions, c.created, c.revenue, c.timeouts, c.wsClients, c.orphans,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collectors) TransitionAttempt(from, to models.OrderStatus, outcome string) {
	c.transitions.WithLabelValues(string(from), string(to), outcome).Inc()
}

func (c *Collectors) OrderCreated(t models.OrderType, totalCents int64) {
	c.created.WithLabelValues(string(t)).Inc()
	c.revenue.WithLabelValues(string(t)).Add(float64(totalCents))
}

func (c *Collectors) StoreTimeout(op string) {
	c.timeouts.WithLabelValues(op).Inc()
}

func (c *Collectors) ClientConnected()    { c.wsClients.Inc() }
func (c *Collectors) ClientDisconnected() { c.wsClients.Dec() }

func (c *Collectors) OrphansDeleted(n int) {
	c.orphans.Add(float64(n))
}

func (c *Collectors) Registry() *prometheus.Registry { return c.reg }

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
