package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/platform"
	"github.com/hermes/platform/internal/pricing"
	"github.com/hermes/platform/internal/registry"
	"github.com/hermes/platform/internal/rounds"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// ServerConfig is the top-level configuration of cmd/server.
type ServerConfig struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Platform  PlatformConfig  `yaml:"platform"`
	Economics EconomicsConfig `yaml:"economics"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Addr returns the listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

// StoreConfig selects and configures persistence.
type StoreConfig struct {
	Kind        string        `yaml:"kind"`
	DatabaseURL string        `yaml:"database_url"`
	RedisURL    string        `yaml:"redis_url"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
	BoltPath    string        `yaml:"bolt_path"`
}

// PlatformConfig names the accounts the platform runs with.
type PlatformConfig struct {
	Address string `yaml:"address"`
	Owner   string `yaml:"owner"`

	// ChairPersons may advance rounds; Admins may withdraw and move ledger
	// ownership. The owner is granted both when the lists are empty.
	ChairPersons []string `yaml:"chair_persons"`
	Admins       []string `yaml:"admins"`
}

// EconomicsConfig holds prices and reward shares. Amounts are wei strings.
type EconomicsConfig struct {
	InitialPrice      string        `yaml:"initial_price"`
	GrowthNumerator   int64         `yaml:"growth_numerator"`
	GrowthDenominator int64         `yaml:"growth_denominator"`
	Increment         string        `yaml:"increment"`
	RoundDuration     time.Duration `yaml:"round_duration"`
	BootstrapVolume   string        `yaml:"bootstrap_volume"`
	SaleReferrerBps   []int64       `yaml:"sale_referrer_bps"`
	TradeReferrerBps  []int64       `yaml:"trade_referrer_bps"`
	Overfill          string        `yaml:"overfill"`
}

// LedgerConfig configures the in-process development ledger.
type LedgerConfig struct {
	// Faucet lets any caller credit themselves with currency.
	Faucet bool `yaml:"faucet"`

	// Genesis credits currency (wei strings) to accounts at startup.
	Genesis map[string]string `yaml:"genesis"`
}

// GenesisBalances parses Ledger.Genesis.
func (c *ServerConfig) GenesisBalances() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Ledger.Genesis))
	for a, v := range c.Ledger.Genesis {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("ledger.genesis[%s]: %w", a, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("ledger.genesis[%s] must be >= 0", a)
		}
		out[canonical(a)] = amount
	}
	return out, nil
}

// Grants returns the role table for access.NewStaticPolicy.
func (c *ServerConfig) Grants() map[string][]string {
	return map[string][]string{
		access.RoleChairPerson: c.Platform.ChairPersons,
		access.RoleAdmin:       c.Platform.Admins,
	}
}

// PlatformConfig converts the economics section into platform.Config.
// Call Validate first; malformed amounts are reported as errors here too.
func (c *ServerConfig) PlatformConfig() (platform.Config, error) {
	e := c.Economics
	initial, err := decimal.NewFromString(e.InitialPrice)
	if err != nil {
		return platform.Config{}, fmt.Errorf("economics.initial_price: %w", err)
	}
	increment, err := decimal.NewFromString(e.Increment)
	if err != nil {
		return platform.Config{}, fmt.Errorf("economics.increment: %w", err)
	}
	bootstrap, err := decimal.NewFromString(e.BootstrapVolume)
	if err != nil {
		return platform.Config{}, fmt.Errorf("economics.bootstrap_volume: %w", err)
	}

	return platform.Config{
		Address: c.Platform.Address,
		Owner:   c.Platform.Owner,
		Pricing: pricing.Params{
			Initial:           initial,
			GrowthNumerator:   e.GrowthNumerator,
			GrowthDenominator: e.GrowthDenominator,
			Increment:         increment,
			UnitScale:         pricing.Ether,
		},
		Rounds: rounds.Config{
			Duration:        e.RoundDuration,
			BootstrapVolume: bootstrap,
		},
		SaleReferrerBps:  toLevels(e.SaleReferrerBps),
		TradeReferrerBps: toLevels(e.TradeReferrerBps),
		Overfill:         platform.OverfillPolicy(e.Overfill),
	}, nil
}

func toLevels(bps []int64) [registry.ChainDepth]int64 {
	var out [registry.ChainDepth]int64
	copy(out[:], bps)
	return out
}
