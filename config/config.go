package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"microlend/crypto"
)

// Config captures the runtime configuration for the marketplace daemon.
type Config struct {
	DataDir              string   `toml:"DataDir"`
	MetricsAddress       string   `toml:"MetricsAddress"`
	LogFile              string   `toml:"LogFile"`
	Environment          string   `toml:"Environment"`
	Operator             string   `toml:"Operator"`
	PlatformFeeBps       uint64   `toml:"PlatformFeeBps"`
	ScoreValiditySeconds int64    `toml:"ScoreValiditySeconds"`
	RolesFile            string   `toml:"RolesFile"`
	StablecoinUnits      []string `toml:"StablecoinUnits"`
}

const (
	defaultMetricsAddress  = ":9464"
	defaultPlatformFeeBps  = 100
	defaultValiditySeconds = 90 * 24 * 60 * 60
	maxPlatformFeeBps      = 1_000
)

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	// An explicit PlatformFeeBps = 0 is a fee-free platform, not an omission.
	applyDefaults(cfg, md.IsDefined("PlatformFeeBps"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the platform cannot safely start with.
func (c *Config) Validate() error {
	if c.PlatformFeeBps > maxPlatformFeeBps {
		return fmt.Errorf("config: PlatformFeeBps %d exceeds maximum %d", c.PlatformFeeBps, maxPlatformFeeBps)
	}
	if c.ScoreValiditySeconds <= 0 {
		return fmt.Errorf("config: ScoreValiditySeconds must be positive")
	}
	if strings.TrimSpace(c.Operator) != "" {
		if _, err := crypto.DecodeAddress(c.Operator); err != nil {
			return fmt.Errorf("config: invalid Operator address: %w", err)
		}
	}
	for _, unit := range c.StablecoinUnits {
		addr, err := crypto.DecodeAddress(unit)
		if err != nil {
			return fmt.Errorf("config: invalid stablecoin unit %q: %w", unit, err)
		}
		if addr.Prefix() != crypto.UnitPrefix {
			return fmt.Errorf("config: stablecoin unit %q must carry the %q prefix", unit, crypto.UnitPrefix)
		}
	}
	return nil
}

// OperatorAddress decodes the configured operator, if any.
func (c *Config) OperatorAddress() (crypto.Address, bool, error) {
	trimmed := strings.TrimSpace(c.Operator)
	if trimmed == "" {
		return crypto.Address{}, false, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, false, err
	}
	return addr, true, nil
}

func applyDefaults(cfg *Config, feeSet bool) {
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = defaultMetricsAddress
	}
	if !feeSet {
		cfg.PlatformFeeBps = defaultPlatformFeeBps
	}
	if cfg.ScoreValiditySeconds == 0 {
		cfg.ScoreValiditySeconds = defaultValiditySeconds
	}
	if cfg.StablecoinUnits == nil {
		cfg.StablecoinUnits = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir: "./microlend-data",
	}
	applyDefaults(cfg, false)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
