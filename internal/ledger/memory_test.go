package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

const (
	owner  = "0xf000000000000000000000000000000000000000"
	alice  = "0x1000000000000000000000000000000000000001"
	bob    = "0x2000000000000000000000000000000000000002"
	hermes = "0xe000000000000000000000000000000000000000"
)

func n(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestMemoryToken_MintRequiresOwner(t *testing.T) {
	ctx := context.Background()
	tok := NewMemoryToken(owner)

	if err := tok.Mint(ctx, alice, alice, n(10)); err != ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := tok.Mint(ctx, owner, alice, n(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if bal, _ := tok.BalanceOf(ctx, alice); !bal.Equal(n(10)) {
		t.Errorf("expected balance 10, got %s", bal)
	}
	if !tok.TotalSupply().Equal(n(10)) {
		t.Errorf("expected supply 10, got %s", tok.TotalSupply())
	}
}

func TestMemoryToken_TransferOwnership(t *testing.T) {
	ctx := context.Background()
	tok := NewMemoryToken(owner)
	if err := tok.TransferOwnership(ctx, owner, hermes); err != nil {
		t.Fatalf("transfer ownership: %v", err)
	}
	if got, _ := tok.Owner(ctx); got != hermes {
		t.Errorf("expected owner %s, got %s", hermes, got)
	}
	if err := tok.Mint(ctx, owner, alice, n(1)); err != ErrNotOwner {
		t.Errorf("old owner should not mint, got %v", err)
	}
}

func TestMemoryToken_TransferFrom(t *testing.T) {
	ctx := context.Background()
	tok := NewMemoryToken(owner)
	tok.Mint(ctx, owner, alice, n(100))

	err := tok.TransferFrom(ctx, hermes, alice, hermes, n(50))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	tok.Approve(ctx, alice, hermes, n(200))
	err = tok.TransferFrom(ctx, hermes, alice, hermes, n(150))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if err := tok.TransferFrom(ctx, hermes, alice, hermes, n(60)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if left, _ := tok.Allowance(ctx, alice, hermes); !left.Equal(n(140)) {
		t.Errorf("expected allowance 140, got %s", left)
	}
	if bal, _ := tok.BalanceOf(ctx, hermes); !bal.Equal(n(60)) {
		t.Errorf("expected escrow balance 60, got %s", bal)
	}
}

func TestMemoryToken_Burn(t *testing.T) {
	ctx := context.Background()
	tok := NewMemoryToken(owner)
	tok.Mint(ctx, owner, bob, n(5))
	if err := tok.Burn(ctx, owner, bob, n(6)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := tok.Burn(ctx, owner, bob, n(5)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if !tok.TotalSupply().IsZero() {
		t.Errorf("supply should be zero, got %s", tok.TotalSupply())
	}
}

func TestMemoryCurrency_CollectAndPay(t *testing.T) {
	ctx := context.Background()
	cur := NewMemoryCurrency(hermes)
	cur.Fund(alice, n(10))

	if err := cur.Collect(ctx, alice, n(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := cur.Collect(ctx, alice, n(10)); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := cur.Pay(ctx, bob, n(4)); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !cur.Balance(hermes).Equal(n(6)) || !cur.Balance(bob).Equal(n(4)) {
		t.Errorf("unexpected balances: platform=%s bob=%s", cur.Balance(hermes), cur.Balance(bob))
	}
}
