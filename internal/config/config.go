package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first, if present, so
// local development can set X402_*/replay/wallet secrets without exporting
// them into the shell — production deployments rely on real env vars and
// simply have no .env to find.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		X402: X402Config{
			Network:       "mainnet-beta",
			RPCURL:        "https://api.mainnet-beta.solana.com",
			WSURL:         "wss://api.mainnet-beta.solana.com",
			TokenDecimals: 6,
			AllowedTokens: []string{"USDC"},
		},
		Paywall: PaywallConfig{
			ChallengeTTL: Duration{Duration: 5 * time.Minute},
			Resources:    map[string]PaywallResource{},
		},
		Replay: ReplayConfig{
			Backend: "memory",
		},
		RateLimit: RateLimitConfig{
			GlobalEnabled:    true,
			GlobalLimit:      1000,
			GlobalWindow:     Duration{Duration: 1 * time.Minute},
			PerWalletEnabled: true,
			PerWalletLimit:   60,
			PerWalletWindow:  Duration{Duration: 1 * time.Minute},
			PerIPEnabled:     true,
			PerIPLimit:       120,
			PerIPWindow:      Duration{Duration: 1 * time.Minute},
		},
		APIKey: APIKeyConfig{
			Enabled: false,
			Keys:    make(map[string]string),
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			SolanaRPC: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
