// Package pricing holds the unit price rule of the platform.
//
// The price only moves at the Trade→Sell edge:
//
//	price' = price * GrowthNumerator / GrowthDenominator + Increment
//
// With the defaults (103/100, +0.000004 currency units) a price of 0.00001
// becomes 0.0000143 after one full cycle.
//
// All arithmetic is integer arithmetic on shopspring/decimal values holding
// wei and base units, truncating like the settlement layer does. The engine
// is stateless: the current price is passed in, not stored.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice is returned when the initial price is not positive.
	ErrInvalidPrice = errors.New("pricing: initial price must be positive")

	// ErrInvalidGrowth is returned when the growth ratio is not positive.
	ErrInvalidGrowth = errors.New("pricing: growth ratio must be positive")

	// ErrInvalidIncrement is returned when the additive increment is negative.
	ErrInvalidIncrement = errors.New("pricing: increment must not be negative")

	// ErrInvalidScale is returned when the unit scale is not positive.
	ErrInvalidScale = errors.New("pricing: unit scale must be positive")
)

// Ether is 10^18 wei, also the number of base units in one whole token.
var Ether = decimal.New(1, 18)

// Params configures the price rule.
type Params struct {
	// Initial is the price of one whole unit, in wei, before any cycle.
	Initial decimal.Decimal

	// GrowthNumerator / GrowthDenominator is the multiplicative step.
	GrowthNumerator   int64
	GrowthDenominator int64

	// Increment is the fixed additive step, in wei.
	Increment decimal.Decimal

	// UnitScale is the number of base units in one whole unit.
	UnitScale decimal.Decimal
}

// DefaultParams returns the production price rule.
func DefaultParams() Params {
	return Params{
		Initial:           decimal.New(1, 13), // 0.00001 currency units
		GrowthNumerator:   103,
		GrowthDenominator: 100,
		Increment:         decimal.New(4, 12), // 0.000004 currency units
		UnitScale:         Ether,
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if !p.Initial.IsPositive() {
		return ErrInvalidPrice
	}
	if p.GrowthNumerator <= 0 || p.GrowthDenominator <= 0 {
		return ErrInvalidGrowth
	}
	if p.Increment.IsNegative() {
		return ErrInvalidIncrement
	}
	if !p.UnitScale.IsPositive() {
		return ErrInvalidScale
	}
	return nil
}

// Engine applies Params.
type Engine struct {
	p Params
}

// NewEngine creates a price engine after validating p.
func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{p: p}, nil
}

// Params returns the configured parameters.
func (e *Engine) Params() Params {
	return e.p
}

// Initial returns the starting price.
func (e *Engine) Initial() decimal.Decimal {
	return e.p.Initial
}

// Next computes the price of the following Sell round.
func (e *Engine) Next(price decimal.Decimal) decimal.Decimal {
	grown := floorDiv(price.Mul(decimal.NewFromInt(e.p.GrowthNumerator)), decimal.NewFromInt(e.p.GrowthDenominator))
	return grown.Add(e.p.Increment)
}

// UnitsFor returns how many base units value wei buys at price, rounded down.
func (e *Engine) UnitsFor(value, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || !value.IsPositive() {
		return decimal.Zero
	}
	return floorDiv(value.Mul(e.p.UnitScale), price)
}

// CostOf returns the wei needed to buy units at price, rounded up so the
// seller is never underpaid.
func (e *Engine) CostOf(units, price decimal.Decimal) decimal.Decimal {
	if !units.IsPositive() {
		return decimal.Zero
	}
	q, r := units.Mul(price).QuoRem(e.p.UnitScale, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}

// Share returns bps/10000 of value, rounded down.
func Share(value decimal.Decimal, bps int64) decimal.Decimal {
	if bps <= 0 {
		return decimal.Zero
	}
	return floorDiv(value.Mul(decimal.NewFromInt(bps)), decimal.NewFromInt(10_000))
}

// floorDiv is integer division of non-negative a by positive b.
func floorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}
