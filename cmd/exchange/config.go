package main

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-exchange/internal/marketdata"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata/provider"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// Config is the full configuration of the exchange service.
type Config struct {
	ListenAddr string   `yaml:"listen_addr"`
	Symbols    []string `yaml:"symbols"`

	Portfolio struct {
		InitialCapital float64 `yaml:"initial_capital"`
		CommissionRate float64 `yaml:"commission_rate"`
	} `yaml:"portfolio"`

	Feed struct {
		Provider          string         `yaml:"provider"`
		UpdateIntervalSec float64        `yaml:"update_interval_sec"`
		MaxRetries        int            `yaml:"max_retries"`
		RetryDelaySec     float64        `yaml:"retry_delay_sec"`
		APIErrorThreshold int            `yaml:"api_error_threshold"`
		MockScenario      types.Scenario `yaml:"mock_scenario"`
		UseSynthetic      bool           `yaml:"use_synthetic"`
	} `yaml:"feed"`
}

// DefaultConfig returns a runnable configuration.
func DefaultConfig() Config {
	cfg := Config{
		ListenAddr: ":8080",
		Symbols:    []string{"AAPL", "MSFT", "GOOGL"},
	}

	cfg.Portfolio.InitialCapital = 100000
	cfg.Feed.Provider = string(provider.ProviderBinance)
	cfg.Feed.UpdateIntervalSec = 5
	cfg.Feed.MaxRetries = 3
	cfg.Feed.RetryDelaySec = 1
	cfg.Feed.APIErrorThreshold = 5
	cfg.Feed.MockScenario = types.ScenarioNormal

	return cfg
}

// LoadConfig reads the YAML config file, applies environment overrides and
// validates the result. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
		}
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "at least one symbol is required")
	}

	if c.Portfolio.InitialCapital <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "initial capital must be positive")
	}

	if c.Portfolio.CommissionRate < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "commission rate must not be negative")
	}

	if c.Feed.UpdateIntervalSec <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "update interval must be positive")
	}

	if c.Feed.MockScenario != "" && !c.Feed.MockScenario.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidScenario, "invalid scenario: %s", c.Feed.MockScenario)
	}

	return nil
}

// FeedConfig converts the config into the feed's own configuration type.
func (c *Config) FeedConfig() marketdata.Config {
	return marketdata.Config{
		UpdateInterval:    time.Duration(c.Feed.UpdateIntervalSec * float64(time.Second)),
		MaxRetries:        c.Feed.MaxRetries,
		RetryDelay:        time.Duration(c.Feed.RetryDelaySec * float64(time.Second)),
		APIErrorThreshold: c.Feed.APIErrorThreshold,
		Scenario:          c.Feed.MockScenario,
		UseSynthetic:      c.Feed.UseSynthetic,
	}
}

// overrideWithEnv lets the environment override deployment-specific values.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("EXCHANGE_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if capital := os.Getenv("EXCHANGE_INITIAL_CAPITAL"); capital != "" {
		if v, err := strconv.ParseFloat(capital, 64); err == nil {
			cfg.Portfolio.InitialCapital = v
		}
	}

	if scenario := os.Getenv("EXCHANGE_MOCK_SCENARIO"); scenario != "" {
		cfg.Feed.MockScenario = types.Scenario(scenario)
	}

	if synthetic := os.Getenv("EXCHANGE_USE_SYNTHETIC"); synthetic != "" {
		if v, err := strconv.ParseBool(synthetic); err == nil {
			cfg.Feed.UseSynthetic = v
		}
	}
}
