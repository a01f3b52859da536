package config

import (
	"os"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration. Gateway-wide
// settings use an X402_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "X402_SERVER_ADDRESS")
	setIfEnv(&c.Server.RoutePrefix, "X402_ROUTE_PREFIX")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "X402_ADMIN_METRICS_API_KEY")

	// Normalize route prefix: ensure it starts with / and doesn't end with /
	if c.Server.RoutePrefix != "" {
		c.Server.RoutePrefix = normalizeRoutePrefix(c.Server.RoutePrefix)
	}

	// x402 config
	setIfEnv(&c.X402.PaymentAddress, "X402_PAYMENT_ADDRESS")
	setIfEnv(&c.X402.TokenMint, "X402_TOKEN_MINT")
	setIfEnv(&c.X402.Network, "X402_NETWORK")
	setIfEnv(&c.X402.RPCURL, "X402_RPC_URL")
	setIfEnv(&c.X402.WSURL, "X402_WS_URL")
	setBoolIfEnv(&c.X402.SkipPreflight, "X402_SKIP_PREFLIGHT")
	setIfEnv(&c.X402.Commitment, "X402_COMMITMENT")

	// Paywall config
	setDurationIfEnv(&c.Paywall.ChallengeTTL, "X402_PAYWALL_CHALLENGE_TTL")

	// Replay registry config
	setIfEnv(&c.Replay.Backend, "X402_REPLAY_BACKEND")
	setIfEnv(&c.Replay.PostgresURL, "X402_REPLAY_POSTGRES_URL")

	// API Key config
	setBoolIfEnv(&c.APIKey.Enabled, "X402_API_KEY_ENABLED")
	// Load API keys (X402_API_KEY_*)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "X402_API_KEY_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "X402_API_KEY_")
		if name == "" || name == "ENABLED" {
			continue
		}
		if c.APIKey.Keys == nil {
			c.APIKey.Keys = make(map[string]string)
		}
		// X402_API_KEY_ACME_CORP=partner -> key: "acme_corp", tier: "partner"
		key := strings.ToLower(name)
		tier := strings.TrimSpace(parts[1])
		c.APIKey.Keys[key] = tier
	}
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// loadServerWalletKeys loads a payer's wallet keys from environment variables.
// Looks for X402_WALLET_1, X402_WALLET_2, X402_WALLET_3, etc. Stops at the
// first gap in the numbering. It is unexported and not called by the
// gatekeeper or by any binary.
func loadServerWalletKeys() []string {
	var keys []string
	for i := 1; i <= 100; i++ {
		key := os.Getenv("X402_WALLET_" + itoa(i))
		if key == "" {
			break
		}
		keys = append(keys, key)
	}
	return keys
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// normalizeRoutePrefix ensures the prefix starts with / and doesn't end with /.
// Examples: "api" -> "/api", "/api/" -> "/api", "x402-gate" -> "/x402-gate"
func normalizeRoutePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix
}
