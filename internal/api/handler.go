// Package api exposes the platform over HTTP and pushes committed journal
// entries to WebSocket clients.
//
// The calling account is taken from the X-Account header; authentication is
// expected to happen in front of this service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/orderbook"
	"github.com/hermes/platform/internal/platform"
)

// CallerHeader carries the address of the account making the request.
const CallerHeader = "X-Account"

// Handler serves the platform operations.
type Handler struct {
	p        *platform.Platform
	validate *validator.Validate
}

// NewHandler creates a handler for p.
func NewHandler(p *platform.Platform) *Handler {
	return &Handler{p: p, validate: newValidator()}
}

var weiRegex = regexp.MustCompile(`^[0-9]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// Validate decimals by their canonical text so "wei" can reject
	// fractions and negatives.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	if err := v.RegisterValidation("wei", func(fl validator.FieldLevel) bool {
		return weiRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("api: register wei validation: %v", err))
	}
	return v
}

// --- Request/Response types ---

// RegisterRequest is the JSON body for POST /accounts.
type RegisterRequest struct {
	Referrer string `json:"referrer" validate:"omitempty,eth_addr"`
}

// ValueRequest is the JSON body for payments (buy, trade).
type ValueRequest struct {
	Value decimal.Decimal `json:"value" validate:"wei"` // wei
}

// AmountRequest is the JSON body for unit or currency amounts (orders, withdrawals).
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"wei"`
}

// OwnerRequest is the JSON body for POST /ledger/owner.
type OwnerRequest struct {
	NewOwner string `json:"new_owner" validate:"required,eth_addr"`
}

// AccountResponse is an account with its referral chain.
type AccountResponse struct {
	model.Account
	ReferralChain []string `json:"referral_chain"`
}

// --- HTTP Handlers ---

// Register handles POST /api/v1/accounts
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	referrer, _ := address.ParseOrZero(req.Referrer)

	acct, err := h.p.Register(r.Context(), caller, referrer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// GetAccount handles GET /api/v1/accounts/{address}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := addressParam(w, r)
	if !ok {
		return
	}
	acct, found := h.p.Account(a)
	if !found {
		writeMessage(w, platform.ErrNotRegistered.Error(), http.StatusNotFound)
		return
	}
	chain := h.p.ReferralChain(a)
	if chain == nil {
		chain = []string{}
	}
	writeJSON(w, http.StatusOK, AccountResponse{Account: acct, ReferralChain: chain})
}

// GetAccountHistory handles GET /api/v1/accounts/{address}/history
func (h *Handler) GetAccountHistory(w http.ResponseWriter, r *http.Request) {
	a, ok := addressParam(w, r)
	if !ok {
		return
	}
	entries, err := h.p.History(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEntries(w, entries)
}

// GetRound handles GET /api/v1/round
func (h *Handler) GetRound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.p.Round())
}

// AdvanceRound handles POST /api/v1/rounds
func (h *Handler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	info, err := h.p.AdvanceRound(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// GetPrice handles GET /api/v1/price
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": h.p.CurrentPrice()})
}

// Buy handles POST /api/v1/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req ValueRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.p.Buy(r.Context(), caller, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListOrders handles GET /api/v1/orders
// Optional filters: ?seller=<address>&status=open|closed.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var f orderbook.Filter
	if s := r.URL.Query().Get("seller"); s != "" {
		seller, err := address.Parse(s)
		if err != nil {
			writeMessage(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Seller = seller
	}
	switch st := model.OrderStatus(r.URL.Query().Get("status")); st {
	case "", model.OrderOpen, model.OrderClosed:
		f.Status = st
	default:
		writeMessage(w, "status must be open or closed", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.p.Orders(f))
}

// NewOrder handles POST /api/v1/orders
func (h *Handler) NewOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.p.NewOrder(r.Context(), caller, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// GetOrder handles GET /api/v1/orders/{orderID}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}
	o, err := h.p.Order(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GetOrderHistory handles GET /api/v1/orders/{orderID}/history
func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}
	entries, err := h.p.OrderHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEntries(w, entries)
}

// Trade handles POST /api/v1/orders/{orderID}/trade
func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := orderParam(w, r)
	if !ok {
		return
	}
	var req ValueRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.p.Trade(r.Context(), caller, id, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CloseOrder handles DELETE /api/v1/orders/{orderID}
func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := orderParam(w, r)
	if !ok {
		return
	}
	o, err := h.p.CloseOrder(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GetTreasury handles GET /api/v1/treasury
func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": h.p.Treasury()})
}

// Withdraw handles POST /api/v1/treasury/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	left, err := h.p.Withdraw(r.Context(), caller, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": left})
}

// TransferLedgerOwnership handles POST /api/v1/ledger/owner
func (h *Handler) TransferLedgerOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req OwnerRequest
	if !h.decode(w, r, &req) {
		return
	}
	newOwner, _ := address.Parse(req.NewOwner)
	if err := h.p.TransferLedgerOwnership(r.Context(), caller, newOwner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": newOwner})
}

// --- Helpers ---

// decode reads and validates a JSON body. It writes a 400 and returns false
// on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeWith(h.validate, w, r, dst)
}

func decodeWith(v *validator.Validate, w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeMessage(w, "invalid "+verrs[0].Field()+": failed "+verrs[0].Tag(), http.StatusBadRequest)
			return false
		}
		writeMessage(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func callerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		writeMessage(w, CallerHeader+" header is required", http.StatusUnauthorized)
		return "", false
	}
	caller, err := address.Parse(raw)
	if err != nil {
		writeMessage(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return caller, true
}

func addressParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	a, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeMessage(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return a, true
}

func orderParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeMessage(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFor maps the platform's failure taxonomy to HTTP.
func statusFor(err error) int {
	switch platform.Kind(err) {
	case platform.KindAuthorization:
		return http.StatusForbidden
	case platform.KindValidation:
		return http.StatusBadRequest
	case platform.KindState:
		return http.StatusConflict
	case platform.KindResource:
		return http.StatusPaymentRequired
	case platform.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a platform failure. Internal failures are logged and
// not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		writeMessage(w, "internal error", status)
		return
	}
	writeMessage(w, rootMessage(err), status)
}

// rootMessage returns the public message of err: the sentinel at the end
// of the wrap chain, so wrapped collaborator failures still read the same.
func rootMessage(err error) string {
	var re *platform.RoleError
	if errors.As(err, &re) {
		return re.Error()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func writeEntries(w http.ResponseWriter, entries []model.Entry) {
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage writes a JSON error response.
func writeMessage(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
