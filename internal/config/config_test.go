package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv()
	defer clearEnv()

	cfg, err := Load("")
	if err == nil {
		t.Fatal("expected error when required fields are missing, got nil")
	}
	if cfg != nil {
		t.Fatal("expected nil config when validation fails")
	}
}

func TestLoadConfig_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{
			name: "missing payment address",
			envVars: map[string]string{
				"X402_TOKEN_MINT": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				"X402_RPC_URL":    "https://api.mainnet-beta.solana.com",
			},
			wantErr: "x402.payment_address is required",
		},
		{
			name: "missing token mint",
			envVars: map[string]string{
				"X402_PAYMENT_ADDRESS": "11111111111111111111111111111111",
				"X402_RPC_URL":         "https://api.mainnet-beta.solana.com",
			},
			wantErr: "x402.token_mint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer clearEnv()

			_, err := Load("")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != "" && !contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestLoadConfig_ValidMinimal(t *testing.T) {
	clearEnv()
	os.Setenv("X402_PAYMENT_ADDRESS", "11111111111111111111111111111111")
	os.Setenv("X402_TOKEN_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	os.Setenv("X402_RPC_URL", "https://api.mainnet-beta.solana.com")
	defer clearEnv()

	cfg := defaultConfig()
	cfg.Paywall.Resources["article-1"] = PaywallResource{AtomicAmount: "10000"}
	cfg.applyEnvOverrides()
	if err := cfg.finalize(); err != nil {
		t.Fatalf("expected no error with valid config, got: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Paywall.ChallengeTTL.Duration != 5*time.Minute {
		t.Errorf("expected default challenge TTL 5m, got %v", cfg.Paywall.ChallengeTTL.Duration)
	}
	if cfg.X402.WSURL != "wss://api.mainnet-beta.solana.com" {
		t.Errorf("expected auto-derived wss URL, got %s", cfg.X402.WSURL)
	}
	res := cfg.Paywall.Resources["article-1"]
	if res.PaymentAddress != cfg.X402.PaymentAddress {
		t.Errorf("expected resource to inherit gateway payment address, got %s", res.PaymentAddress)
	}
	if res.TokenMint != cfg.X402.TokenMint {
		t.Errorf("expected resource to inherit gateway token mint, got %s", res.TokenMint)
	}
}

func TestLoadConfig_UnknownStablecoinMintRejected(t *testing.T) {
	clearEnv()
	os.Setenv("X402_PAYMENT_ADDRESS", "11111111111111111111111111111111")
	os.Setenv("X402_TOKEN_MINT", "NotARealMintAddress11111111111111111111111")
	os.Setenv("X402_RPC_URL", "https://api.mainnet-beta.solana.com")
	defer clearEnv()

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for unrecognized stablecoin mint")
	}
	if !contains(err.Error(), "not a recognized stablecoin") {
		t.Errorf("expected stablecoin validation error, got: %v", err)
	}
}

func TestLoadConfig_ResourcesRequired(t *testing.T) {
	clearEnv()
	os.Setenv("X402_PAYMENT_ADDRESS", "11111111111111111111111111111111")
	os.Setenv("X402_TOKEN_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	os.Setenv("X402_RPC_URL", "https://api.mainnet-beta.solana.com")
	defer clearEnv()

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when no resources are configured")
	}
	if !contains(err.Error(), "paywall.resources must define at least one resource") {
		t.Errorf("expected resources-required error, got: %v", err)
	}
}

func TestNormalizeRoutePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"api", "/api"},
		{"/api", "/api"},
		{"/api/", "/api"},
		{"  /api/  ", "/api"},
		{"x402-gate", "/x402-gate"},
		{"/v1/x402", "/v1/x402"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := normalizeRoutePrefix(tt.input)
			if got != tt.want {
				t.Errorf("normalizeRoutePrefix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadServerWalletKeys(t *testing.T) {
	clearEnv()
	os.Setenv("X402_WALLET_1", "wallet1")
	os.Setenv("X402_WALLET_2", "wallet2")
	os.Setenv("X402_WALLET_3", "wallet3")
	// Gap - X402_WALLET_4 missing
	os.Setenv("X402_WALLET_5", "wallet5")
	defer clearEnv()

	keys := loadServerWalletKeys()
	if len(keys) != 3 {
		t.Errorf("expected 3 wallets (stops at gap), got %d", len(keys))
	}
	if keys[0] != "wallet1" || keys[1] != "wallet2" || keys[2] != "wallet3" {
		t.Errorf("unexpected wallet keys: %v", keys)
	}
}

// Test helpers

func clearEnv() {
	envVars := []string{
		"X402_SERVER_ADDRESS", "X402_ROUTE_PREFIX", "X402_ADMIN_METRICS_API_KEY",
		"X402_PAYMENT_ADDRESS", "X402_TOKEN_MINT", "X402_NETWORK",
		"X402_RPC_URL", "X402_WS_URL", "X402_SKIP_PREFLIGHT", "X402_COMMITMENT",
		"X402_PAYWALL_CHALLENGE_TTL",
		"X402_REPLAY_BACKEND", "X402_REPLAY_POSTGRES_URL",
		"X402_API_KEY_ENABLED",
		"X402_WALLET_1", "X402_WALLET_2", "X402_WALLET_3", "X402_WALLET_5",
	}
	for _, key := range envVars {
		os.Unsetenv(key)
	}
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
