package platform

import (
	"context"
	"log/slog"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/model"
)

// Register records caller with referrer. An empty referrer or address.Zero
// registers without one.
func (p *Platform) Register(ctx context.Context, caller, referrer string) (model.Account, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return model.Account{}, err
	}
	if !address.IsZero(referrer) {
		if referrer, err = parseAccount("referrer", referrer); err != nil {
			return model.Account{}, err
		}
	}

	var acct model.Account
	err = p.run(ctx, "register", func(tx *txn) error {
		a, err := tx.st.accounts.Register(caller, referrer, tx.now)
		if err != nil {
			return err
		}
		acct = a
		tx.accounts = append(tx.accounts, a)

		e := model.Entry{Kind: model.EntryRegister, Account: caller}
		if !address.IsZero(a.Referrer) {
			e.Counterparty = a.Referrer
		}
		tx.record(e)
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}

	slog.Info("account registered", "account", caller, "referrer", acct.Referrer)
	return acct, nil
}
