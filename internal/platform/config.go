package platform

import (
	"errors"
	"fmt"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/pricing"
	"github.com/hermes/platform/internal/registry"
	"github.com/hermes/platform/internal/rounds"
)

// OverfillPolicy decides what a trade does when its payment buys more units
// than the order has left.
type OverfillPolicy string

const (
	// OverfillCap fills the remainder and keeps the whole payment. The part
	// above the remainder's cost goes to the treasury.
	OverfillCap OverfillPolicy = "cap"
	// OverfillRefund fills the remainder and pays the excess back to the buyer.
	OverfillRefund OverfillPolicy = "refund"
	// OverfillReject fails the trade with ErrOrderOverfilled.
	OverfillReject OverfillPolicy = "reject"
)

// Referral reward shares in basis points, first level then second level.
var (
	DefaultSaleReferrerBps  = [registry.ChainDepth]int64{500, 300}
	DefaultTradeReferrerBps = [registry.ChainDepth]int64{250, 250}
)

// Config holds the platform parameters.
type Config struct {
	// Address is the platform's own account: it owns the unit ledger,
	// holds escrowed units and collects currency.
	Address string

	// Owner receives treasury withdrawals.
	Owner string

	Pricing pricing.Params
	Rounds  rounds.Config

	SaleReferrerBps  [registry.ChainDepth]int64
	TradeReferrerBps [registry.ChainDepth]int64

	Overfill OverfillPolicy
}

// DefaultConfig returns the standard economics for the given accounts.
func DefaultConfig(platformAddr, owner string) Config {
	return Config{
		Address:          platformAddr,
		Owner:            owner,
		Pricing:          pricing.DefaultParams(),
		Rounds:           rounds.DefaultConfig(),
		SaleReferrerBps:  DefaultSaleReferrerBps,
		TradeReferrerBps: DefaultTradeReferrerBps,
		Overfill:         OverfillCap,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if _, err := address.Parse(c.Address); err != nil || address.IsZero(c.Address) {
		return fmt.Errorf("platform address %q: %w", c.Address, address.ErrInvalidAddress)
	}
	if _, err := address.Parse(c.Owner); err != nil || address.IsZero(c.Owner) {
		return fmt.Errorf("owner address %q: %w", c.Owner, address.ErrInvalidAddress)
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	if c.Rounds.Duration <= 0 {
		return errors.New("round duration must be positive")
	}
	if c.Rounds.BootstrapVolume.IsNegative() {
		return errors.New("bootstrap volume must not be negative")
	}
	for name, bps := range map[string][registry.ChainDepth]int64{
		"sale":  c.SaleReferrerBps,
		"trade": c.TradeReferrerBps,
	} {
		var sum int64
		for _, b := range bps {
			if b < 0 {
				return fmt.Errorf("%s referrer share must not be negative", name)
			}
			sum += b
		}
		if sum > 10000 {
			return fmt.Errorf("%s referrer shares exceed 100%%", name)
		}
	}
	switch c.Overfill {
	case OverfillCap, OverfillRefund, OverfillReject:
	default:
		return fmt.Errorf("unknown overfill policy %q", c.Overfill)
	}
	return nil
}
