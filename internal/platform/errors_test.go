package platform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/ledger"
)

func TestRoleError(t *testing.T) {
	err := fmt.Errorf("advance: %w", &RoleError{Role: access.RoleChairPerson})

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("RoleError should match ErrUnauthorized")
	}
	var re *RoleError
	if !errors.As(err, &re) || re.Role != access.RoleChairPerson {
		t.Errorf("errors.As = %v", re)
	}
	if got := (&RoleError{Role: access.RoleAdmin}).Error(); got != "Person doesnt have the DEFAULT_ADMIN_ROLE role" {
		t.Errorf("message = %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{&RoleError{Role: access.RoleAdmin}, KindAuthorization},
		{ErrNotOrderOwner, KindAuthorization},
		{ErrZeroValue, KindValidation},
		{ErrNotRegistered, KindValidation},
		{ErrAlreadyRegistered, KindValidation},
		{ErrReferrerNotRegistered, KindValidation},
		{ErrSaleRoundNotStarted, KindValidation},
		{ErrSaleRoundOver, KindValidation},
		{ErrTradeRoundNotStarted, KindValidation},
		{ErrOrderOverfilled, KindValidation},
		{ErrRoundNotOver, KindState},
		{ErrOrderClosed, KindState},
		{ErrInsufficientFunds, KindResource},
		{fmt.Errorf("escrow: %w", ledger.ErrInsufficientAllowance), KindResource},
		{fmt.Errorf("escrow: %w", ledger.ErrInsufficientBalance), KindResource},
		{ErrOrderNotFound, KindNotFound},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := map[error]string{
		ErrRoundNotOver:          "Previous round isnt over",
		ErrAlreadyRegistered:     "Account already registered",
		ErrReferrerNotRegistered: "Referral account not registered",
		ErrInsufficientFunds:     "Contract doesn't have enough eth",
		ErrOrderClosed:           "Order is closed",
		ErrZeroValue:             "Value is zero wei",
		ErrSaleRoundOver:         "Sell round is over",
		ErrSaleRoundNotStarted:   "Sell round has not come yet",
		ErrNotRegistered:         "Account not registered",
		ErrTradeRoundNotStarted:  "Trade round has not come yet",
		ErrNotOrderOwner:         "User doesnt own this order",
	}
	for err, want := range tests {
		if err.Error() != want {
			t.Errorf("got %q, want %q", err.Error(), want)
		}
	}
}
