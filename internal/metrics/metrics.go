// Package metrics holds the Prometheus instruments of the back-office. A nil
// *Metrics is valid and records nothing, so services can run without it in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "pos"

// Checkout outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeEmptyCart   = "empty_cart"
	OutcomeNoCart      = "no_cart"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Checkouts            *prometheus.CounterVec
	SettlementRevenue    prometheus.Counter
	DebtsOpened          prometheus.Counter
	DebtPayments         prometheus.Counter
	DebtsMarkedOverdue   prometheus.Counter
	CartsExpired         prometheus.Counter
	NotificationFailures *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.Checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.SettlementRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_revenue_total",
		Help:      "Revenue of completed settlements",
	})
	m.DebtsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "debts_opened_total",
		Help:      "Debts opened by underpaid settlements",
	})
	m.DebtPayments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "debt_payments_total",
		Help:      "Payments recorded against debts",
	})
	m.DebtsMarkedOverdue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "debts_marked_overdue_total",
		Help:      "Debts flipped to overdue by the sweep",
	})
	m.CartsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "carts_expired_total",
		Help:      "Active carts marked abandoned",
	})
	m.NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be sent",
		},
		[]string{"kind"},
	)
	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published",
		},
		[]string{"event_type", "status"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.Checkouts,
		m.SettlementRevenue,
		m.DebtsOpened,
		m.DebtPayments,
		m.DebtsMarkedOverdue,
		m.CartsExpired,
		m.NotificationFailures,
		m.EventsPublished,
	)
	return m
}

func (m *Metrics) RecordCheckout(outcome string, revenue decimal.Decimal, debtOpened bool) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	m.SettlementRevenue.Add(revenue.InexactFloat64())
	if debtOpened {
		m.DebtsOpened.Inc()
	}
}

func (m *Metrics) RecordDebtPayment() {
	if m == nil {
		return
	}
	m.DebtPayments.Inc()
}

func (m *Metrics) RecordOverdue(n int) {
	if m == nil {
		return
	}
	m.DebtsMarkedOverdue.Add(float64(n))
}

func (m *Metrics) RecordCartsExpired(n int64) {
	if m == nil {
		return
	}
	m.CartsExpired.Add(float64(n))
}

func (m *Metrics) RecordNotificationFailure(kind string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

// Middleware records count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
