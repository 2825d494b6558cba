package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comanda_http_requests_total",
			Help: "HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comanda_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comanda_orders_placed_total",
		Help: "Orders created or merged by waiters",
	})

	OrdersReady = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comanda_orders_ready_total",
		Help: "Orders marked ready by the kitchen",
	})

	OrdersPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comanda_orders_paid_total",
		Help: "Orders paid at checkout",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "comanda_ws_connections",
		Help: "Open websocket connections",
	})
)

// Middleware records request counts and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			timer := prometheus.NewTimer(RequestDuration.WithLabelValues(c.Request().Method, c.Path()))
			err := next(c)
			timer.ObserveDuration()

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			RequestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
