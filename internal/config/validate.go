package config

import (
	"errors"
	"fmt"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/registry"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if err := c.Store.validate(); err != nil {
		return err
	}

	if err := validateAddress("platform.address", c.Platform.Address); err != nil {
		return err
	}
	if err := validateAddress("platform.owner", c.Platform.Owner); err != nil {
		return err
	}
	for i, a := range c.Platform.ChairPersons {
		if err := validateAddress(fmt.Sprintf("platform.chair_persons[%d]", i), a); err != nil {
			return err
		}
	}
	for i, a := range c.Platform.Admins {
		if err := validateAddress(fmt.Sprintf("platform.admins[%d]", i), a); err != nil {
			return err
		}
	}

	if len(c.Economics.SaleReferrerBps) > registry.ChainDepth {
		return fmt.Errorf("economics.sale_referrer_bps has %d levels, at most %d allowed",
			len(c.Economics.SaleReferrerBps), registry.ChainDepth)
	}
	if len(c.Economics.TradeReferrerBps) > registry.ChainDepth {
		return fmt.Errorf("economics.trade_referrer_bps has %d levels, at most %d allowed",
			len(c.Economics.TradeReferrerBps), registry.ChainDepth)
	}

	for a := range c.Ledger.Genesis {
		if err := validateAddress(fmt.Sprintf("ledger.genesis[%s]", a), a); err != nil {
			return err
		}
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}

	pc, err := c.PlatformConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("economics: %w", err)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Kind {
	case StoreMemory:
	case StorePostgres:
		if s.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres store")
		}
	case StoreBolt:
		if s.BoltPath == "" {
			return errors.New("store.bolt_path is required for the bolt store")
		}
	default:
		return fmt.Errorf("store.kind must be one of %s, %s, %s; got %q",
			StoreMemory, StorePostgres, StoreBolt, s.Kind)
	}
	if s.RedisURL != "" && s.Kind == StoreMemory {
		return errors.New("store.redis_url needs a persistent store kind")
	}
	if s.RedisTTL < 0 {
		return errors.New("store.redis_ttl must be >= 0")
	}
	return nil
}

func validateAddress(field, a string) error {
	if a == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := address.Parse(a); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if address.IsZero(a) {
		return fmt.Errorf("%s must not be the zero address", field)
	}
	return nil
}
