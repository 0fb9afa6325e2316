package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/model"
)

// Withdraw pays amount wei from the treasury to the configured owner.
func (p *Platform) Withdraw(ctx context.Context, caller string, amount decimal.Decimal) (decimal.Decimal, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var left decimal.Decimal
	err = p.run(ctx, "withdraw", func(tx *txn) error {
		if err := p.requireRole(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		if !amount.IsPositive() {
			return ErrZeroValue
		}
		if tx.st.treasury.LessThan(amount) {
			return ErrInsufficientFunds
		}

		if err := tx.pay(p.cfg.Owner, amount); err != nil {
			return err
		}
		tx.st.treasury = tx.st.treasury.Sub(amount)
		left = tx.st.treasury

		tx.record(model.Entry{
			Kind:         model.EntryWithdraw,
			Account:      p.cfg.Owner,
			Counterparty: caller,
			Value:        amount,
		})
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	slog.Info("treasury withdrawn", "by", caller, "to", p.cfg.Owner, "amount", amount.String(), "left", left.String())
	return left, nil
}

// TransferLedgerOwnership hands ownership of the unit ledger to newOwner.
// After this the platform can no longer mint, so sales fail until ownership
// is returned.
func (p *Platform) TransferLedgerOwnership(ctx context.Context, caller, newOwner string) error {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return err
	}
	if !address.IsZero(newOwner) {
		if newOwner, err = parseAccount("new ledger owner", newOwner); err != nil {
			return err
		}
	}

	err = p.run(ctx, "transfer_ledger_ownership", func(tx *txn) error {
		if err := p.requireRole(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		if address.IsZero(newOwner) {
			return fmt.Errorf("new ledger owner: %w", address.ErrInvalidAddress)
		}

		self := p.cfg.Address
		if err := p.token.TransferOwnership(tx.ctx, self, newOwner); err != nil {
			return fmt.Errorf("transfer ledger ownership: %w", err)
		}
		tx.onUndo("ledger ownership", func(ctx context.Context) error {
			return p.token.TransferOwnership(ctx, newOwner, self)
		})

		tx.record(model.Entry{
			Kind:         model.EntryOwnership,
			Account:      newOwner,
			Counterparty: caller,
		})
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("ledger ownership transferred", "by", caller, "new_owner", newOwner)
	return nil
}
