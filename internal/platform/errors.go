package platform

import (
	"errors"
	"fmt"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/ledger"
	"github.com/hermes/platform/internal/orderbook"
	"github.com/hermes/platform/internal/registry"
	"github.com/hermes/platform/internal/rounds"
)

// Failure messages are part of the public contract; callers match on them.
var (
	ErrUnauthorized         = errors.New("Person doesnt have the required role")
	ErrZeroValue            = errors.New("Value is zero wei")
	ErrNotRegistered        = errors.New("Account not registered")
	ErrSaleRoundNotStarted  = errors.New("Sell round has not come yet")
	ErrSaleRoundOver        = errors.New("Sell round is over")
	ErrTradeRoundNotStarted = errors.New("Trade round has not come yet")
	ErrOrderOverfilled      = errors.New("Order doesnt have enough tokens")
	ErrInsufficientFunds    = errors.New("Contract doesn't have enough eth")

	ErrAlreadyRegistered     = registry.ErrAlreadyRegistered
	ErrReferrerNotRegistered = registry.ErrReferrerNotRegistered
	ErrRoundNotOver          = rounds.ErrRoundNotOver
	ErrOrderNotFound         = orderbook.ErrOrderNotFound
	ErrOrderClosed           = orderbook.ErrOrderClosed
	ErrNotOrderOwner         = orderbook.ErrNotOrderOwner
)

// RoleError reports a missing capability. It matches ErrUnauthorized.
type RoleError struct {
	Role string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("Person doesnt have the %s role", e.Role)
}

func (e *RoleError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ErrorKind is the failure taxonomy used to pick transport status codes.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthorization
	KindValidation
	KindState
	KindResource
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotOrderOwner):
		return KindAuthorization
	case errors.Is(err, ErrZeroValue),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrReferrerNotRegistered),
		errors.Is(err, ErrSaleRoundNotStarted),
		errors.Is(err, ErrSaleRoundOver),
		errors.Is(err, ErrTradeRoundNotStarted),
		errors.Is(err, ErrOrderOverfilled),
		errors.Is(err, address.ErrInvalidAddress),
		errors.Is(err, ledger.ErrZeroAddress),
		errors.Is(err, ledger.ErrNegativeAmount):
		return KindValidation
	case errors.Is(err, ErrRoundNotOver),
		errors.Is(err, ErrOrderClosed),
		errors.Is(err, ledger.ErrNotOwner):
		return KindState
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		return KindResource
	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	}
	return KindInternal
}
