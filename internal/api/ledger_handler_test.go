package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes/platform/internal/api"
	"github.com/hermes/platform/internal/ledger"
)

func TestLedger_ApproveThenEscrow(t *testing.T) {
	env := newTestEnv(t)
	env.setupTrade(t)

	var bal api.BalanceResponse
	expect(t, env.do(t, "GET", "/api/v1/ledger/balances/"+acc3, "", nil), http.StatusOK, &bal)
	assert.Equal(t, "100000000000000000000000", bal.Units.String())
	assert.True(t, bal.Allowance.IsZero())

	w := env.do(t, "POST", "/api/v1/orders", acc3, map[string]string{"amount": "1000"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	expect(t, env.do(t, "POST", "/api/v1/ledger/approve", acc3, map[string]string{"amount": "1000"}), http.StatusOK, &bal)
	assert.Equal(t, acc3, bal.Address)
	assert.Equal(t, "1000", bal.Allowance.String())

	expect(t, env.do(t, "POST", "/api/v1/orders", acc3, map[string]string{"amount": "1000"}), http.StatusCreated, nil)

	expect(t, env.do(t, "GET", "/api/v1/ledger/balances/"+acc3, "", nil), http.StatusOK, &bal)
	assert.Equal(t, "99999999999999999999000", bal.Units.String())
	assert.True(t, bal.Allowance.IsZero())
}

func TestLedger_Faucet(t *testing.T) {
	env := newTestEnv(t)

	var bal api.BalanceResponse
	expect(t, env.do(t, "POST", "/api/v1/ledger/faucet", acc1, map[string]string{"amount": oneEther}), http.StatusOK, &bal)
	assert.Equal(t, "101000000000000000000", bal.Currency.String())
	assert.Equal(t, "101000000000000000000", env.currency.Balance(acc1).String())

	w := env.do(t, "POST", "/api/v1/ledger/faucet", "", map[string]string{"amount": oneEther})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "POST", "/api/v1/ledger/faucet", acc1, map[string]string{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid Amount: failed wei", errorOf(t, w))
}

func TestLedger_FaucetDisabled(t *testing.T) {
	token := ledger.NewMemoryToken(self)
	router := api.NewRouter(nil, nil, api.NewLedgerHandler(token, ledger.NewMemoryCurrency(self), self, false))

	req := httptest.NewRequest("POST", "/api/v1/ledger/faucet", strings.NewReader(`{"amount":"1"}`))
	req.Header.Set(api.CallerHeader, acc1)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "faucet disabled")
}

func TestLedger_BadAddress(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/v1/ledger/balances/0x12", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
