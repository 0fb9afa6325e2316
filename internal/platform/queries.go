package platform

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/orderbook"
)

// RoundInfo is the public view of the active round.
type RoundInfo struct {
	Round       model.Round     `json:"round"`
	Price       decimal.Decimal `json:"price"`
	SaleSupply  decimal.Decimal `json:"sale_supply"`
	TradeVolume decimal.Decimal `json:"trade_volume"`
}

func roundInfo(st *state) RoundInfo {
	rs := st.rounds.State()
	return RoundInfo{
		Round:       rs.Round,
		Price:       rs.Price,
		SaleSupply:  rs.SaleSupply,
		TradeVolume: rs.TradeVolume,
	}
}

// Round returns the active round.
func (p *Platform) Round() RoundInfo {
	return roundInfo(p.current())
}

// CurrentPrice returns the unit price in wei.
func (p *Platform) CurrentPrice() decimal.Decimal {
	return p.current().rounds.Price()
}

// Account returns the registered account a.
func (p *Platform) Account(a string) (model.Account, bool) {
	return p.current().accounts.Get(canonical(a))
}

// IsRegistered reports whether a is registered.
func (p *Platform) IsRegistered(a string) bool {
	return p.current().accounts.IsRegistered(canonical(a))
}

// ReferralChain returns up to two ancestors of a, nearest first.
func (p *Platform) ReferralChain(a string) []string {
	var out []string
	for ref := range p.current().accounts.ReferralChain(canonical(a)) {
		out = append(out, ref)
	}
	return out
}

// Order returns order id.
func (p *Platform) Order(id uint64) (model.Order, error) {
	o, ok := p.current().book.Get(id)
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return o, nil
}

// Orders lists orders matching f, by id.
func (p *Platform) Orders(f orderbook.Filter) []model.Order {
	if f.Seller != "" {
		f.Seller = canonical(f.Seller)
	}
	return p.current().book.List(f)
}

// Treasury returns the currency retained by the platform.
func (p *Platform) Treasury() decimal.Decimal {
	return p.current().treasury
}

// History returns the journal entries involving account, oldest first.
func (p *Platform) History(ctx context.Context, account string) ([]model.Entry, error) {
	return p.store.GetEntriesByAccount(ctx, canonical(account))
}

// OrderHistory returns the journal entries about order id, oldest first.
func (p *Platform) OrderHistory(ctx context.Context, id uint64) ([]model.Entry, error) {
	if _, err := p.Order(id); err != nil {
		return nil, err
	}
	return p.store.GetEntriesByOrder(ctx, id)
}
