package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/ledger"
)

// Wallet is the currency side of a development ledger.
type Wallet interface {
	Balance(account string) decimal.Decimal
	Fund(account string, amount decimal.Decimal)
}

// LedgerHandler serves balances and approvals against the collaborators the
// platform runs on, so clients can prepare escrow without a chain node.
type LedgerHandler struct {
	token    ledger.Token
	wallet   Wallet
	spender  string
	faucet   bool
	validate *validator.Validate
}

// NewLedgerHandler creates a ledger handler. spender is the platform address
// approvals are granted to. faucet enables POST /ledger/faucet.
func NewLedgerHandler(token ledger.Token, wallet Wallet, spender string, faucet bool) *LedgerHandler {
	return &LedgerHandler{
		token:    token,
		wallet:   wallet,
		spender:  spender,
		faucet:   faucet,
		validate: newValidator(),
	}
}

// BalanceResponse is the JSON body of GET /ledger/balances/{address}.
type BalanceResponse struct {
	Address   string          `json:"address"`
	Units     decimal.Decimal `json:"units"`
	Currency  decimal.Decimal `json:"currency"`
	Allowance decimal.Decimal `json:"allowance"`
}

// GetBalance handles GET /api/v1/ledger/balances/{address}
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	a, ok := addressParam(w, r)
	if !ok {
		return
	}
	h.writeBalance(w, r, a)
}

// Approve handles POST /api/v1/ledger/approve. The caller allows the
// platform to escrow up to amount of their units.
func (h *LedgerHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !decodeWith(h.validate, w, r, &req) {
		return
	}
	if err := h.token.Approve(r.Context(), caller, h.spender, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	h.writeBalance(w, r, caller)
}

// Faucet handles POST /api/v1/ledger/faucet. Development deployments only.
func (h *LedgerHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	if !h.faucet {
		writeMessage(w, "faucet disabled", http.StatusNotFound)
		return
	}
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !decodeWith(h.validate, w, r, &req) {
		return
	}
	h.wallet.Fund(caller, req.Amount)
	h.writeBalance(w, r, caller)
}

func (h *LedgerHandler) writeBalance(w http.ResponseWriter, r *http.Request, a string) {
	units, err := h.token.BalanceOf(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	allowance, err := h.token.Allowance(r.Context(), a, h.spender)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Address:   a,
		Units:     units,
		Currency:  h.wallet.Balance(a),
		Allowance: allowance,
	})
}
