package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("buy", "error"))
	ObserveOperation("buy", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("buy", "error"))
	if after != before+1 {
		t.Errorf("error count = %v, want %v", after, before+1)
	}
}

func TestSetPhase(t *testing.T) {
	SetPhase("trade", "idle", "sell", "trade")
	if v := testutil.ToFloat64(RoundPhase.WithLabelValues("trade")); v != 1 {
		t.Errorf("trade = %v, want 1", v)
	}
	if v := testutil.ToFloat64(RoundPhase.WithLabelValues("sell")); v != 0 {
		t.Errorf("sell = %v, want 0", v)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/orders/{id}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/7", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/orders/{id}", "418"))
	if after != before+1 {
		t.Errorf("request count = %v, want %v", after, before+1)
	}
}
