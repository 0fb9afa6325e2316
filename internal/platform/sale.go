package platform

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
)

// BuyResult describes a completed primary sale.
type BuyResult struct {
	Units    decimal.Decimal `json:"units"`
	Price    decimal.Decimal `json:"price"`
	Rewards  []Reward        `json:"rewards"`
	Retained decimal.Decimal `json:"retained"` // added to the treasury
}

// Buy sells newly minted units to caller for value wei at the current price.
func (p *Platform) Buy(ctx context.Context, caller string, value decimal.Decimal) (BuyResult, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return BuyResult{}, err
	}

	var res BuyResult
	err = p.run(ctx, "buy", func(tx *txn) error {
		if !value.IsPositive() {
			return ErrZeroValue
		}
		rc := tx.st.rounds
		if rc.Phase() != model.PhaseSell {
			return ErrSaleRoundNotStarted
		}
		if rc.SoldOut() {
			return ErrSaleRoundOver
		}
		if !tx.st.accounts.IsRegistered(caller) {
			return ErrNotRegistered
		}

		price := rc.Price()
		units := p.prices.UnitsFor(value, price)

		if err := tx.collect(caller, value); err != nil {
			return err
		}
		if err := tx.mint(caller, units); err != nil {
			return err
		}
		rc.ConsumeSupply(units)

		tx.record(model.Entry{
			Kind:    model.EntryBuy,
			Account: caller,
			Units:   units,
			Value:   value,
			Price:   price,
		})

		po, err := tx.payReferrers("sale", caller, value, p.cfg.SaleReferrerBps, nil)
		if err != nil {
			return err
		}
		retained := value.Sub(po.paid)
		tx.st.treasury = tx.st.treasury.Add(retained)

		res = BuyResult{Units: units, Price: price, Rewards: po.rewards, Retained: retained}
		return nil
	})
	if err != nil {
		return BuyResult{}, err
	}

	slog.Info("units sold",
		"buyer", caller,
		"value", value.String(),
		"units", res.Units.String(),
		"price", res.Price.String(),
		"retained", res.Retained.String(),
	)
	return res, nil
}
