package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/platform"
)

const (
	platformAddr = "0x00000000000000000000000000000000000000AA"
	ownerAddr    = "0x00000000000000000000000000000000000000BB"
)

// clearEnv keeps the developer's shell out of the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_URL", "BOLT_PATH"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	yaml := `
http:
  port: 9000
  read_timeout: 5s
store:
  kind: bolt
  bolt_path: /var/lib/hermes/state.db
platform:
  address: ` + platformAddr + `
  owner: ` + ownerAddr + `
economics:
  round_duration: 1h
  overfill: reject
ledger:
  faucet: true
  genesis:
    ` + ownerAddr + `: "5000000000000000000"
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Port != 9000 {
		t.Errorf("HTTP.Port = %d, want 9000", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("HTTP.ReadTimeout = %v, want 5s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Store.Kind != StoreBolt {
		t.Errorf("Store.Kind = %q, want %q", cfg.Store.Kind, StoreBolt)
	}
	if cfg.Economics.RoundDuration != time.Hour {
		t.Errorf("Economics.RoundDuration = %v, want 1h", cfg.Economics.RoundDuration)
	}
	if cfg.Economics.Overfill != "reject" {
		t.Errorf("Economics.Overfill = %q, want reject", cfg.Economics.Overfill)
	}
	if !cfg.Ledger.Faucet {
		t.Error("Ledger.Faucet = false, want true")
	}

	genesis, err := cfg.GenesisBalances()
	if err != nil {
		t.Fatalf("GenesisBalances failed: %v", err)
	}
	if got := genesis[strings.ToLower(ownerAddr)]; got.String() != "5000000000000000000" {
		t.Errorf("genesis[owner] = %s, want 5000000000000000000", got)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_HERMES_OWNER", ownerAddr)

	yaml := `
platform:
  address: ` + platformAddr + `
  owner: ${TEST_HERMES_OWNER}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Platform.Owner != ownerAddr {
		t.Errorf("Platform.Owner = %q, want %q", cfg.Platform.Owner, ownerAddr)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)
	yaml := `
platform:
  address: ` + platformAddr + `
  owner: ` + ownerAddr + `
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.HTTP.Port != DefaultPort {
		t.Errorf("HTTP.Port = %d, want %d", cfg.HTTP.Port, DefaultPort)
	}
	if cfg.Store.Kind != StoreMemory {
		t.Errorf("Store.Kind = %q, want %q", cfg.Store.Kind, StoreMemory)
	}
	if cfg.Store.RedisTTL != DefaultRedisTTL {
		t.Errorf("Store.RedisTTL = %v, want %v", cfg.Store.RedisTTL, DefaultRedisTTL)
	}
	if cfg.Economics.RoundDuration != 72*time.Hour {
		t.Errorf("Economics.RoundDuration = %v, want 72h", cfg.Economics.RoundDuration)
	}

	owner := strings.ToLower(ownerAddr)
	if cfg.Platform.Owner != owner {
		t.Errorf("Platform.Owner = %q, want lower-cased %q", cfg.Platform.Owner, owner)
	}
	grants := cfg.Grants()
	for _, role := range []string{access.RoleChairPerson, access.RoleAdmin} {
		if len(grants[role]) != 1 || grants[role][0] != owner {
			t.Errorf("grants[%s] = %v, want [%s]", role, grants[role], owner)
		}
	}

	pc, err := cfg.PlatformConfig()
	if err != nil {
		t.Fatalf("PlatformConfig failed: %v", err)
	}
	want := platform.DefaultConfig(strings.ToLower(platformAddr), owner)
	if !pc.Pricing.Initial.Equal(want.Pricing.Initial) || !pc.Pricing.Increment.Equal(want.Pricing.Increment) {
		t.Errorf("pricing = %+v, want %+v", pc.Pricing, want.Pricing)
	}
	if pc.Pricing.GrowthNumerator != 103 || pc.Pricing.GrowthDenominator != 100 {
		t.Errorf("growth = %d/%d, want 103/100", pc.Pricing.GrowthNumerator, pc.Pricing.GrowthDenominator)
	}
	if !pc.Rounds.BootstrapVolume.Equal(want.Rounds.BootstrapVolume) {
		t.Errorf("bootstrap = %s, want %s", pc.Rounds.BootstrapVolume, want.Rounds.BootstrapVolume)
	}
	if pc.SaleReferrerBps != want.SaleReferrerBps || pc.TradeReferrerBps != want.TradeReferrerBps {
		t.Errorf("bps = %v/%v, want %v/%v", pc.SaleReferrerBps, pc.TradeReferrerBps,
			want.SaleReferrerBps, want.TradeReferrerBps)
	}
	if pc.Overfill != platform.OverfillCap {
		t.Errorf("Overfill = %q, want %q", pc.Overfill, platform.OverfillCap)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("default platform config invalid: %v", err)
	}
}

func TestLoadWithDefaults_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://hermes@localhost/hermes")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("HTTP.Port = %d, want 7070", cfg.HTTP.Port)
	}
	if cfg.Store.Kind != StorePostgres {
		t.Errorf("Store.Kind = %q, want %q", cfg.Store.Kind, StorePostgres)
	}
	if cfg.Store.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Store.RedisURL = %q", cfg.Store.RedisURL)
	}

	t.Setenv("PORT", "http")
	if _, err := LoadWithDefaults(""); err == nil {
		t.Error("expected error for non-numeric PORT")
	}
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)
	path := writeTempFile(t, `
platform:
  address: `+platformAddr+`
  owner: `+ownerAddr+`
`)
	if _, err := LoadAndValidate(path); err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	path = writeTempFile(t, "platform:\n  owner: "+ownerAddr+"\n")
	_, err := LoadAndValidate(path)
	if err == nil || !strings.Contains(err.Error(), "platform.address is required") {
		t.Errorf("err = %v, want missing platform.address", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeTempFile(t, "http: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestExampleConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://hermes@localhost/hermes")
	t.Setenv("HERMES_PLATFORM_ADDRESS", platformAddr)
	t.Setenv("HERMES_OWNER_ADDRESS", ownerAddr)

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "hermes.example.yaml"))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Store.Kind != StorePostgres {
		t.Errorf("Store.Kind = %q, want %q", cfg.Store.Kind, StorePostgres)
	}
	if cfg.Store.RedisURL != "" {
		t.Errorf("Store.RedisURL = %q, want empty", cfg.Store.RedisURL)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func() *ServerConfig {
		cfg := &ServerConfig{Platform: PlatformConfig{Address: platformAddr, Owner: ownerAddr}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*ServerConfig)
		wantErr string
	}{
		{"valid", func(*ServerConfig) {}, ""},
		{"port zero", func(c *ServerConfig) { c.HTTP.Port = 0 }, "http.port"},
		{"port too high", func(c *ServerConfig) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown store", func(c *ServerConfig) { c.Store.Kind = "sqlite" }, "store.kind"},
		{"postgres without url", func(c *ServerConfig) { c.Store.Kind = StorePostgres }, "store.database_url"},
		{"redis over memory", func(c *ServerConfig) { c.Store.RedisURL = "redis://x" }, "store.redis_url"},
		{"bad owner", func(c *ServerConfig) { c.Platform.Owner = "0x1234" }, "platform.owner"},
		{"zero platform", func(c *ServerConfig) {
			c.Platform.Address = "0x0000000000000000000000000000000000000000"
		}, "platform.address must not be the zero address"},
		{"bad admin", func(c *ServerConfig) { c.Platform.Admins = []string{"alice"} }, "platform.admins[0]"},
		{"bad price", func(c *ServerConfig) { c.Economics.InitialPrice = "ten" }, "economics.initial_price"},
		{"zero price", func(c *ServerConfig) { c.Economics.InitialPrice = "0" }, "initial price must be positive"},
		{"negative duration", func(c *ServerConfig) { c.Economics.RoundDuration = -time.Hour }, "round duration"},
		{"too many levels", func(c *ServerConfig) {
			c.Economics.SaleReferrerBps = []int64{100, 100, 100}
		}, "economics.sale_referrer_bps"},
		{"shares over 100%", func(c *ServerConfig) {
			c.Economics.TradeReferrerBps = []int64{6000, 5000}
		}, "trade referrer shares exceed"},
		{"bad genesis address", func(c *ServerConfig) {
			c.Ledger.Genesis = map[string]string{"bob": "1"}
		}, "ledger.genesis[bob]"},
		{"negative genesis", func(c *ServerConfig) {
			c.Ledger.Genesis = map[string]string{ownerAddr: "-1"}
		}, "must be >= 0"},
		{"refund overfill", func(c *ServerConfig) { c.Economics.Overfill = "refund" }, ""},
		{"unknown overfill", func(c *ServerConfig) { c.Economics.Overfill = "partial" }, "overfill"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("TEST_HERMES_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TEST_HERMES_DOTENV", "")
	os.Unsetenv("TEST_HERMES_DOTENV")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("TEST_HERMES_DOTENV"); got != "from-file" {
		t.Errorf("TEST_HERMES_DOTENV = %q, want from-file", got)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
