// Package metrics provides Prometheus instrumentation for the simulation
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersSubmitted counts orders accepted into the book, by source.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simengine_orders_submitted_total",
		Help: "Orders accepted into the order book",
	}, []string{"source"})

	// OrdersFilled counts orders that reached 100% fill.
	OrdersFilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_orders_filled_total",
		Help: "Orders that reached terminal filled status",
	})

	// OrdersCancelled counts cancellations observed by the simulator.
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_orders_cancelled_total",
		Help: "Orders cancelled before completion",
	})

	// FillTicks counts individual fill progression ticks.
	FillTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_fill_ticks_total",
		Help: "Fill simulator progression ticks",
	})

	// ActiveFillTimers tracks outstanding simulator timers. More than one
	// per tracked order is an invariant violation, and any nonzero value
	// after teardown is a leak.
	ActiveFillTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simengine_active_fill_timers",
		Help: "Outstanding fill simulator timers",
	})

	// PositionsOpened counts positions created by fills and deployments.
	PositionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_positions_opened_total",
		Help: "Positions opened",
	})

	// PositionsClosed counts explicit position closes.
	PositionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_positions_closed_total",
		Help: "Positions closed",
	})

	// StrategiesDeployed counts strategy deployments.
	StrategiesDeployed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simengine_strategies_deployed_total",
		Help: "Market-maker strategies deployed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simengine_websocket_clients",
		Help: "Connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simengine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simengine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
