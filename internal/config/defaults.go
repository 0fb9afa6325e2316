package config

import (
	"slices"
	"time"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/platform"
	"github.com/hermes/platform/internal/pricing"
	"github.com/hermes/platform/internal/rounds"
)

// Default values for optional configuration fields.
const (
	DefaultPort              = 8080
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultStoreKind         = StoreMemory
	DefaultRedisTTL          = 30 * time.Second
	DefaultBoltPath          = "data/hermes.db"
	DefaultGrowthNumerator   = 103
	DefaultGrowthDenominator = 100
	DefaultOverfill          = string(platform.OverfillCap)
)

func (c *ServerConfig) applyDefaults() {
	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultPort
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = DefaultIdleTimeout
	}

	// Store defaults
	if c.Store.Kind == "" {
		c.Store.Kind = DefaultStoreKind
	}
	if c.Store.RedisTTL == 0 {
		c.Store.RedisTTL = DefaultRedisTTL
	}
	if c.Store.BoltPath == "" {
		c.Store.BoltPath = DefaultBoltPath
	}

	// Accounts are compared in lower case everywhere.
	c.Platform.Address = canonical(c.Platform.Address)
	c.Platform.Owner = canonical(c.Platform.Owner)
	if len(c.Platform.ChairPersons) == 0 && !address.IsZero(c.Platform.Owner) {
		c.Platform.ChairPersons = []string{c.Platform.Owner}
	}
	if len(c.Platform.Admins) == 0 && !address.IsZero(c.Platform.Owner) {
		c.Platform.Admins = []string{c.Platform.Owner}
	}
	c.Platform.ChairPersons = normalize(c.Platform.ChairPersons)
	c.Platform.Admins = normalize(c.Platform.Admins)

	// Economics defaults
	p := pricing.DefaultParams()
	r := rounds.DefaultConfig()
	e := &c.Economics
	if e.InitialPrice == "" {
		e.InitialPrice = p.Initial.String()
	}
	if e.GrowthNumerator == 0 {
		e.GrowthNumerator = DefaultGrowthNumerator
	}
	if e.GrowthDenominator == 0 {
		e.GrowthDenominator = DefaultGrowthDenominator
	}
	if e.Increment == "" {
		e.Increment = p.Increment.String()
	}
	if e.RoundDuration == 0 {
		e.RoundDuration = r.Duration
	}
	if e.BootstrapVolume == "" {
		e.BootstrapVolume = r.BootstrapVolume.String()
	}
	if e.SaleReferrerBps == nil {
		e.SaleReferrerBps = slices.Clone(platform.DefaultSaleReferrerBps[:])
	}
	if e.TradeReferrerBps == nil {
		e.TradeReferrerBps = slices.Clone(platform.DefaultTradeReferrerBps[:])
	}
	if e.Overfill == "" {
		e.Overfill = DefaultOverfill
	}
}

// normalize lower-cases valid addresses and keeps invalid ones verbatim so
// Validate can report them.
func normalize(accounts []string) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		a = canonical(a)
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

func canonical(a string) string {
	if parsed, err := address.Parse(a); err == nil {
		return parsed
	}
	return a
}
