package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

// Collectors は在庫・注文・HTTPのメトリクス。nilでも呼び出せる
type Collectors struct {
	Reservations   *prometheus.CounterVec
	StockConflicts prometheus.Counter
	Releases       prometheus.Counter
	LowStock       prometheus.Counter
	Transitions    *prometheus.CounterVec
	OrderConflicts prometheus.Counter

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "reservations_total",
			Help:      "Stock reservations by result.",
		}, []string{"result"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "stock_conflicts_total",
			Help:      "Conditional stock writes that lost a race and were retried.",
		}),
		Releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "releases_total",
			Help:      "Stock releases (cancellations, rollbacks, restocks).",
		}),
		LowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "low_stock_signals_total",
			Help:      "Products that crossed below the low-stock threshold.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status writes by target status.",
		}, []string{"status"}),
		OrderConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "version_conflicts_total",
			Help:      "Conditional order writes that lost a race and were retried.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}

	if reg != nil {
		reg.MustRegister(
			c.Reservations, c.StockConflicts, c.Releases, c.LowStock,
			c.Transitions, c.OrderConflicts, c.Requests, c.LatencyMS,
		)
	}
	return c
}

func (c *Collectors) ObserveReservation(result string) {
	if c == nil {
		return
	}
	c.Reservations.WithLabelValues(result).Inc()
}

func (c *Collectors) ObserveStockConflict() {
	if c == nil {
		return
	}
	c.StockConflicts.Inc()
}

func (c *Collectors) ObserveRelease() {
	if c == nil {
		return
	}
	c.Releases.Inc()
}

func (c *Collectors) ObserveLowStock() {
	if c == nil {
		return
	}
	c.LowStock.Inc()
}

func (c *Collectors) ObserveTransition(status string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(status).Inc()
}

func (c *Collectors) ObserveOrderConflict() {
	if c == nil {
		return
	}
	c.OrderConflicts.Inc()
}

func (c *Collectors) ObserveRequest(route, status string, ms float64) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(route, status).Inc()
	c.LatencyMS.WithLabelValues(route).Observe(ms)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
