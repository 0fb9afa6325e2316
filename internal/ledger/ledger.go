// Package ledger defines the external collaborators that move value: the
// fungible unit ledger (Token) and the native currency (Currency).
//
// The platform only calls these interfaces. The in-memory implementations in
// this package back development servers and tests.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance   = errors.New("ledger: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrNotOwner              = errors.New("ledger: caller is not the owner")
	ErrZeroAddress           = errors.New("ledger: zero address")
	ErrNegativeAmount        = errors.New("ledger: negative amount")
)

// Token is a fungible unit ledger with a single owner allowed to mint.
// Every mutating call names the account on whose authority it acts.
type Token interface {
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
	Allowance(ctx context.Context, owner, spender string) (decimal.Decimal, error)

	// Transfer moves amount from `from` to `to`, acting as `from`.
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error

	// TransferFrom moves amount from `from` to `to` using spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error

	Approve(ctx context.Context, owner, spender string, amount decimal.Decimal) error

	// Mint and Burn require caller to be the ledger owner.
	Mint(ctx context.Context, caller, to string, amount decimal.Decimal) error
	Burn(ctx context.Context, caller, from string, amount decimal.Decimal) error

	Owner(ctx context.Context) (string, error)
	TransferOwnership(ctx context.Context, caller, newOwner string) error
}

// Currency moves native currency into and out of the platform.
type Currency interface {
	// Collect takes amount from account as payment attached to a call.
	Collect(ctx context.Context, from string, amount decimal.Decimal) error

	// Pay sends amount from the platform to account.
	Pay(ctx context.Context, to string, amount decimal.Decimal) error
}
