package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hermes/platform/internal/metrics"
)

// NewRouter builds the full HTTP surface: health, metrics, and /api/v1.
// hub may be nil to disable the WebSocket feed; lh may be nil when the
// ledger is not served by this process.
func NewRouter(h *Handler, hub *Hub, lh *LedgerHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"hermes"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if hub != nil {
			// Long-lived; outside the request timeout.
			r.Get("/ws", hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Accounts.
			r.Post("/accounts", h.Register)
			r.Get("/accounts/{address}", h.GetAccount)
			r.Get("/accounts/{address}/history", h.GetAccountHistory)

			// Rounds and pricing.
			r.Get("/round", h.GetRound)
			r.Post("/rounds", h.AdvanceRound)
			r.Get("/price", h.GetPrice)

			// Primary sale.
			r.Post("/buy", h.Buy)

			// Order book.
			r.Get("/orders", h.ListOrders)
			r.Post("/orders", h.NewOrder)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Get("/orders/{orderID}/history", h.GetOrderHistory)
			r.Post("/orders/{orderID}/trade", h.Trade)
			r.Delete("/orders/{orderID}", h.CloseOrder)

			// Treasury administration.
			r.Get("/treasury", h.GetTreasury)
			r.Post("/treasury/withdraw", h.Withdraw)
			r.Post("/ledger/owner", h.TransferLedgerOwnership)

			if lh != nil {
				r.Get("/ledger/balances/{address}", lh.GetBalance)
				r.Post("/ledger/approve", lh.Approve)
				r.Post("/ledger/faucet", lh.Faucet)
			}
		})
	})

	return r
}

// cors allows cross-origin requests from browser frontends.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CallerHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
