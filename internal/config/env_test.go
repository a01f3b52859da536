package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverrides_ServerConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402_SERVER_ADDRESS overrides default",
			envVars: map[string]string{
				"X402_SERVER_ADDRESS": ":3000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":3000" {
					t.Errorf("Expected :3000, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "X402_ROUTE_PREFIX override",
			envVars: map[string]string{
				"X402_ROUTE_PREFIX": "/api",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("Expected /api, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
		{
			name: "X402_ROUTE_PREFIX normalizes missing leading slash",
			envVars: map[string]string{
				"X402_ROUTE_PREFIX": "gate/",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/gate" {
					t.Errorf("Expected /gate, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_X402Config(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402_RPC_URL override",
			envVars: map[string]string{
				"X402_RPC_URL": "https://custom-rpc.solana.com",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.X402.RPCURL != "https://custom-rpc.solana.com" {
					t.Errorf("Expected custom RPC URL, got %s", cfg.X402.RPCURL)
				}
			},
		},
		{
			name: "X402_PAYMENT_ADDRESS override",
			envVars: map[string]string{
				"X402_PAYMENT_ADDRESS": "test-wallet-address",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.X402.PaymentAddress != "test-wallet-address" {
					t.Errorf("Expected test-wallet-address, got %s", cfg.X402.PaymentAddress)
				}
			},
		},
		{
			name: "X402_SKIP_PREFLIGHT boolean (true)",
			envVars: map[string]string{
				"X402_SKIP_PREFLIGHT": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.X402.SkipPreflight {
					t.Error("Expected SkipPreflight to be true")
				}
			},
		},
		{
			name: "X402_SKIP_PREFLIGHT boolean (1)",
			envVars: map[string]string{
				"X402_SKIP_PREFLIGHT": "1",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.X402.SkipPreflight {
					t.Error("Expected SkipPreflight to be true with '1'")
				}
			},
		},
		{
			name: "X402_SKIP_PREFLIGHT boolean (false)",
			envVars: map[string]string{
				"X402_SKIP_PREFLIGHT": "false",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.X402.SkipPreflight {
					t.Error("Expected SkipPreflight to be false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_PaywallConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402_PAYWALL_CHALLENGE_TTL duration override (120s)",
			envVars: map[string]string{
				"X402_PAYWALL_CHALLENGE_TTL": "120s",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				expected := 120 * time.Second
				if cfg.Paywall.ChallengeTTL.Duration != expected {
					t.Errorf("Expected %v, got %v", expected, cfg.Paywall.ChallengeTTL.Duration)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_ReplayConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402_REPLAY_BACKEND override",
			envVars: map[string]string{
				"X402_REPLAY_BACKEND": "postgres",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Replay.Backend != "postgres" {
					t.Errorf("Expected postgres, got %s", cfg.Replay.Backend)
				}
			},
		},
		{
			name: "X402_REPLAY_POSTGRES_URL override",
			envVars: map[string]string{
				"X402_REPLAY_POSTGRES_URL": "postgresql://user:pass@db:5432/replay",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				expected := "postgresql://user:pass@db:5432/replay"
				if cfg.Replay.PostgresURL != expected {
					t.Errorf("Expected %s, got %s", expected, cfg.Replay.PostgresURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_APIKeyConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402_API_KEY_ENABLED boolean (true)",
			envVars: map[string]string{
				"X402_API_KEY_ENABLED": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be true")
				}
			},
		},
		{
			name: "X402_API_KEY_ENABLED boolean (false)",
			envVars: map[string]string{
				"X402_API_KEY_ENABLED": "false",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be false")
				}
			},
		},
		{
			name: "X402_API_KEY_* env vars create key-tier mappings",
			envVars: map[string]string{
				"X402_API_KEY_ENABLED":        "true",
				"X402_API_KEY_ACME_CORP":      "partner",
				"X402_API_KEY_ENTERPRISE_XYZ": "enterprise",
				"X402_API_KEY_PRO_TEST":       "pro",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be true")
				}
				if len(cfg.APIKey.Keys) != 3 {
					t.Errorf("Expected 3 API keys, got %d", len(cfg.APIKey.Keys))
				}
				if cfg.APIKey.Keys["acme_corp"] != "partner" {
					t.Errorf("Expected acme_corp=partner, got %s", cfg.APIKey.Keys["acme_corp"])
				}
				if cfg.APIKey.Keys["enterprise_xyz"] != "enterprise" {
					t.Errorf("Expected enterprise_xyz=enterprise, got %s", cfg.APIKey.Keys["enterprise_xyz"])
				}
				if cfg.APIKey.Keys["pro_test"] != "pro" {
					t.Errorf("Expected pro_test=pro, got %s", cfg.APIKey.Keys["pro_test"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

// TestLoadServerWalletKeys and TestNormalizeRoutePrefix already exist in config_test.go
