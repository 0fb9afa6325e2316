// Package metrics provides Prometheus instrumentation for the platform.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts platform operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hermes_operations_total",
		Help: "Total number of platform operations",
	}, []string{"op", "result"})

	// OperationLatency tracks how long operations hold the writer lock.
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hermes_operation_latency_seconds",
		Help:    "Platform operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// Rollbacks counts failed operations whose collaborator effects were undone.
	Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hermes_rollbacks_total",
		Help: "Operations rolled back after a partial collaborator effect",
	}, []string{"op"})

	// RoundNumber is the number of the active round.
	RoundNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_round_number",
		Help: "Number of the active round",
	})

	// RoundPhase is 1 for the active phase and 0 for the others.
	RoundPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hermes_round_phase",
		Help: "Active round phase",
	}, []string{"phase"})

	// UnitPrice is the current price in wei per whole unit.
	UnitPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_unit_price_wei",
		Help: "Current unit price in wei",
	})

	// SaleSupply is the number of units left in the Sell round.
	SaleSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_sale_supply_units",
		Help: "Units left for sale in the current Sell round",
	})

	// TradeVolume is the currency traded in the current Trade round.
	TradeVolume = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_trade_volume_wei",
		Help: "Currency traded in the current Trade round",
	})

	// TreasuryBalance is the currency retained by the platform.
	TreasuryBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_treasury_wei",
		Help: "Treasury balance in wei",
	})

	// OpenOrders tracks the number of open orders.
	OpenOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_open_orders",
		Help: "Number of currently open orders",
	})

	// RegisteredAccounts tracks the number of registered accounts.
	RegisteredAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_registered_accounts",
		Help: "Number of registered accounts",
	})

	// RewardsPaid counts referral reward payouts by kind ("sale" or "trade") and level.
	RewardsPaid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hermes_referral_rewards_total",
		Help: "Referral reward payouts",
	}, []string{"kind", "level"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hermes_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hermes_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hermes_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveOperation records one finished operation.
func ObserveOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(op, result).Inc()
	OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetPhase marks phase as the active one.
func SetPhase(phase string, all ...string) {
	for _, p := range all {
		v := 0.0
		if p == phase {
			v = 1
		}
		RoundPhase.WithLabelValues(p).Set(v)
	}
}

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

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
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

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs for Hijack.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
