package platform

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
)

// TradeResult describes a completed fill.
type TradeResult struct {
	Order          model.Order     `json:"order"`
	Units          decimal.Decimal `json:"units"`
	Charged        decimal.Decimal `json:"charged"`
	Refund         decimal.Decimal `json:"refund"`
	Retained       decimal.Decimal `json:"retained"` // excess kept by the treasury
	SellerProceeds decimal.Decimal `json:"seller_proceeds"`
	Rewards        []Reward        `json:"rewards"`
}

// NewOrder escrows amount units from caller and lists them at the current
// price. The platform must hold an allowance from caller on the unit ledger.
func (p *Platform) NewOrder(ctx context.Context, caller string, amount decimal.Decimal) (model.Order, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return model.Order{}, err
	}

	var order model.Order
	err = p.run(ctx, "new_order", func(tx *txn) error {
		rc := tx.st.rounds
		if rc.Phase() != model.PhaseTrade {
			return ErrTradeRoundNotStarted
		}
		if !tx.st.accounts.IsRegistered(caller) {
			return ErrNotRegistered
		}
		if !amount.IsPositive() {
			return ErrZeroValue
		}

		if err := tx.escrow(caller, amount); err != nil {
			return err
		}

		order = tx.st.book.Create(caller, amount, rc.Price(), rc.Round().Number, tx.now)
		tx.touchOrder(order.ID)
		tx.record(model.Entry{
			Kind:    model.EntryOrderCreated,
			Account: caller,
			OrderID: &order.ID,
			Units:   amount,
			Price:   order.UnitPrice,
		})
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	slog.Info("order created",
		"order_id", order.ID,
		"seller", caller,
		"amount", amount.String(),
		"unit_price", order.UnitPrice.String(),
	)
	return order, nil
}

// Trade buys units from order id for value wei at the order's price.
func (p *Platform) Trade(ctx context.Context, caller string, id uint64, value decimal.Decimal) (TradeResult, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return TradeResult{}, err
	}

	var res TradeResult
	err = p.run(ctx, "trade", func(tx *txn) error {
		if !value.IsPositive() {
			return ErrZeroValue
		}
		if tx.st.rounds.Phase() != model.PhaseTrade {
			return ErrTradeRoundNotStarted
		}
		if !tx.st.accounts.IsRegistered(caller) {
			return ErrNotRegistered
		}
		o, err := tx.st.book.Open(id)
		if err != nil {
			return err
		}

		units := p.prices.UnitsFor(value, o.UnitPrice)
		charged := value
		if units.GreaterThan(o.Remaining) {
			if p.cfg.Overfill == OverfillReject {
				return ErrOrderOverfilled
			}
			units = o.Remaining
			charged = p.prices.CostOf(units, o.UnitPrice)
		}
		// The payment above charged is refunded or retained by policy.
		refund, retained := decimal.Zero, decimal.Zero
		if excess := value.Sub(charged); excess.IsPositive() {
			if p.cfg.Overfill == OverfillRefund {
				refund = excess
			} else {
				retained = excess
			}
		}

		if err := tx.collect(caller, value); err != nil {
			return err
		}
		filled, err := tx.st.book.Fill(id, units, tx.now)
		if err != nil {
			return err
		}
		tx.touchOrder(id)
		if err := tx.release(caller, units); err != nil {
			return err
		}
		tx.record(model.Entry{
			Kind:         model.EntryTrade,
			Account:      caller,
			Counterparty: o.Seller,
			OrderID:      &o.ID,
			Units:        units,
			Value:        charged,
			Price:        o.UnitPrice,
		})

		if refund.IsPositive() {
			if err := tx.pay(caller, refund); err != nil {
				return err
			}
			tx.record(model.Entry{
				Kind:    model.EntryRefund,
				Account: caller,
				OrderID: &o.ID,
				Value:   refund,
			})
		}
		if retained.IsPositive() {
			tx.st.treasury = tx.st.treasury.Add(retained)
			tx.record(model.Entry{
				Kind:    model.EntryOverfill,
				Account: caller,
				OrderID: &o.ID,
				Value:   retained,
			})
		}

		po, err := tx.payReferrers("trade", o.Seller, charged, p.cfg.TradeReferrerBps, &o.ID)
		if err != nil {
			return err
		}
		proceeds := charged.Sub(po.paid).Sub(po.unpaid)
		if err := tx.pay(o.Seller, proceeds); err != nil {
			return err
		}
		tx.st.treasury = tx.st.treasury.Add(po.unpaid)
		tx.st.rounds.RecordVolume(charged)

		if !filled.IsOpen() {
			tx.record(model.Entry{
				Kind:    model.EntryOrderClosed,
				Account: o.Seller,
				OrderID: &o.ID,
			})
		}

		res = TradeResult{
			Order:          filled,
			Units:          units,
			Charged:        charged,
			Refund:         refund,
			Retained:       retained,
			SellerProceeds: proceeds,
			Rewards:        po.rewards,
		}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}

	slog.Info("trade executed",
		"order_id", id,
		"buyer", caller,
		"seller", res.Order.Seller,
		"units", res.Units.String(),
		"charged", res.Charged.String(),
		"refund", res.Refund.String(),
		"retained", res.Retained.String(),
		"remaining", res.Order.Remaining.String(),
	)
	return res, nil
}

// CloseOrder closes caller's open order and returns the unsold remainder
// from escrow.
func (p *Platform) CloseOrder(ctx context.Context, caller string, id uint64) (model.Order, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return model.Order{}, err
	}

	var closed model.Order
	var returned decimal.Decimal
	err = p.run(ctx, "close_order", func(tx *txn) error {
		before, err := tx.st.book.Cancel(id, caller, tx.now)
		if err != nil {
			return err
		}
		tx.touchOrder(id)
		returned = before.Remaining
		if err := tx.release(caller, returned); err != nil {
			return err
		}

		closed, _ = tx.st.book.Get(id)
		tx.record(model.Entry{
			Kind:    model.EntryOrderClosed,
			Account: caller,
			OrderID: &closed.ID,
			Units:   returned,
		})
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	slog.Info("order closed", "order_id", id, "seller", caller, "returned", returned.String())
	return closed, nil
}
