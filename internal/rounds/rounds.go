// Package rounds implements the round state machine.
//
// Phases alternate Sell → Trade → Sell → … forever, starting from Idle.
// A round may be advanced once it has lasted Duration, or, for a Sell round
// only, once its sale supply has been exhausted. The price is recomputed
// only on the Trade → Sell edge.
package rounds

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/pricing"
)

// DefaultDuration is the length of a round.
const DefaultDuration = 72 * time.Hour

var ErrRoundNotOver = errors.New("Previous round isnt over")

// Config configures a Controller.
type Config struct {
	Duration time.Duration

	// BootstrapVolume sizes the first Sell round as if a Trade round with
	// this much currency volume had preceded it.
	BootstrapVolume decimal.Decimal
}

// DefaultConfig returns a 72-hour round with a one-ether bootstrap volume.
func DefaultConfig() Config {
	return Config{
		Duration:        DefaultDuration,
		BootstrapVolume: pricing.Ether,
	}
}

// State is the part of the platform state the controller owns.
type State struct {
	Round       model.Round
	Price       decimal.Decimal
	SaleSupply  decimal.Decimal
	TradeVolume decimal.Decimal
}

// Controller owns the active round, the price and the sale supply.
// It is not safe for concurrent use; the platform serializes access.
type Controller struct {
	cfg    Config
	prices *pricing.Engine
	st     State
}

// New creates a controller in the Idle phase at the engine's initial price.
func New(cfg Config, prices *pricing.Engine) *Controller {
	return &Controller{
		cfg:    cfg,
		prices: prices,
		st: State{
			Round:       model.Round{Phase: model.PhaseIdle},
			Price:       prices.Initial(),
			SaleSupply:  decimal.Zero,
			TradeVolume: decimal.Zero,
		},
	}
}

// Restore creates a controller from persisted state.
func Restore(cfg Config, prices *pricing.Engine, st State) *Controller {
	return &Controller{cfg: cfg, prices: prices, st: st}
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	return c.st
}

// Round returns the active round.
func (c *Controller) Round() model.Round {
	return c.st.Round
}

// Phase returns the active phase.
func (c *Controller) Phase() model.Phase {
	return c.st.Round.Phase
}

// Price returns the current unit price.
func (c *Controller) Price() decimal.Decimal {
	return c.st.Price
}

// SaleSupply returns the units left for sale in the current Sell round.
func (c *Controller) SaleSupply() decimal.Decimal {
	return c.st.SaleSupply
}

// SoldOut reports whether a Sell round has no supply left.
func (c *Controller) SoldOut() bool {
	return c.st.Round.Phase == model.PhaseSell && !c.st.SaleSupply.IsPositive()
}

// Eligible reports whether the active round may be advanced at now.
func (c *Controller) Eligible(now time.Time) bool {
	switch c.st.Round.Phase {
	case model.PhaseIdle:
		return true
	case model.PhaseSell:
		if !c.st.SaleSupply.IsPositive() {
			return true
		}
	}
	return now.Sub(c.st.Round.StartedAt) >= c.cfg.Duration
}

// Advance moves to the next phase, returning the new round.
func (c *Controller) Advance(now time.Time) (model.Round, error) {
	if !c.Eligible(now) {
		return model.Round{}, ErrRoundNotOver
	}

	switch c.st.Round.Phase {
	case model.PhaseIdle:
		c.openSell(now, c.cfg.BootstrapVolume)
	case model.PhaseSell:
		c.st.Round = model.Round{
			Number:    c.st.Round.Number + 1,
			Phase:     model.PhaseTrade,
			StartedAt: now,
		}
		// Unsold supply is never minted; nothing to burn.
		c.st.SaleSupply = decimal.Zero
		c.st.TradeVolume = decimal.Zero
	case model.PhaseTrade:
		c.st.Price = c.prices.Next(c.st.Price)
		c.openSell(now, c.st.TradeVolume)
	}
	return c.st.Round, nil
}

func (c *Controller) openSell(now time.Time, volume decimal.Decimal) {
	c.st.Round = model.Round{
		Number:    c.st.Round.Number + 1,
		Phase:     model.PhaseSell,
		StartedAt: now,
	}
	c.st.SaleSupply = c.prices.UnitsFor(volume, c.st.Price)
	c.st.TradeVolume = decimal.Zero
	if !c.st.SaleSupply.IsPositive() {
		c.st.Round.EndedEarly = true
	}
}

// ConsumeSupply deducts units sold from the Sell-round supply, saturating
// at zero. Exhausting the supply ends the round early.
func (c *Controller) ConsumeSupply(units decimal.Decimal) {
	left := c.st.SaleSupply.Sub(units)
	if !left.IsPositive() {
		left = decimal.Zero
		c.st.Round.EndedEarly = true
	}
	c.st.SaleSupply = left
}

// RecordVolume adds currency traded in the current Trade round.
func (c *Controller) RecordVolume(value decimal.Decimal) {
	c.st.TradeVolume = c.st.TradeVolume.Add(value)
}

// Clone returns an independent copy sharing the immutable price engine.
func (c *Controller) Clone() *Controller {
	cp := *c
	return &cp
}
