package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	X402           X402Config           `yaml:"x402"`
	Paywall        PaywallConfig        `yaml:"paywall"`
	Replay         ReplayConfig         `yaml:"replay"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	APIKey         APIKeyConfig         `yaml:"api_key"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout         Duration `yaml:"read_timeout"`
	WriteTimeout        Duration `yaml:"write_timeout"`
	IdleTimeout         Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
	RoutePrefix         string   `yaml:"route_prefix"`          // Optional prefix for all routes (e.g., "/api", "/x402")
	AdminMetricsAPIKey  string   `yaml:"admin_metrics_api_key"` // Optional API key to protect /metrics endpoint (leave empty to disable protection)
}

// X402Config holds x402 protocol and Solana configuration shared by every
// policy the gatekeeper enforces.
type X402Config struct {
	PaymentAddress string   `yaml:"payment_address"`
	TokenMint      string   `yaml:"token_mint"`
	Network        string   `yaml:"network"`
	RPCURL         string   `yaml:"rpc_url"`
	WSURL          string   `yaml:"ws_url"`
	TokenDecimals  uint8    `yaml:"token_decimals"`
	AllowedTokens  []string `yaml:"allowed_tokens"`
	SkipPreflight  bool     `yaml:"skip_preflight"`
	Commitment     string   `yaml:"commitment"`
}

// PaywallConfig describes the static catalog of resources the gatekeeper
// protects, keyed by resource ID.
type PaywallConfig struct {
	ChallengeTTL Duration                   `yaml:"challenge_ttl"` // How long an issued 402 challenge stays valid
	Resources    map[string]PaywallResource `yaml:"resources"`
}

// PaywallResource defines a single protected resource's payment requirements.
// Amounts are in the asset's smallest unit (e.g. USDC has 6 decimals, so
// "1000000" is one dollar).
type PaywallResource struct {
	ResourceID     string            `yaml:"resource_id"`
	Description    string            `yaml:"description"`
	AtomicAmount   string            `yaml:"atomic_amount"`
	TokenMint      string            `yaml:"token_mint"` // Defaults to x402.token_mint when empty
	PaymentAddress string            `yaml:"payment_address"` // Defaults to x402.payment_address when empty
	SkipVerification bool            `yaml:"skip_verification"`
	Metadata       map[string]string `yaml:"metadata"`
}

// ReplayConfig configures the payment_id claim registry (internal/replay).
type ReplayConfig struct {
	Backend      string             `yaml:"backend"` // "memory" or "postgres"
	PostgresURL  string             `yaml:"postgres_url"`
	PostgresPool PostgresPoolConfig `yaml:"postgres_pool"`
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // Maximum number of open connections (default: 25)
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // Maximum number of idle connections (default: 5)
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // Maximum lifetime of connections (default: 5m)
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// RateLimitConfig holds rate limiting configuration.
// Provides multi-tier rate limiting to prevent spam while allowing legitimate use.
type RateLimitConfig struct {
	// Global rate limiting (across all users)
	GlobalEnabled bool     `yaml:"global_enabled"`
	GlobalLimit   int      `yaml:"global_limit"`
	GlobalWindow  Duration `yaml:"global_window"`

	// Per-wallet rate limiting (identified by the public_key in a request's
	// X-Payment-Authorization header)
	PerWalletEnabled bool     `yaml:"per_wallet_enabled"`
	PerWalletLimit   int      `yaml:"per_wallet_limit"`
	PerWalletWindow  Duration `yaml:"per_wallet_window"`

	// Per-IP rate limiting (fallback when wallet not identified)
	PerIPEnabled bool     `yaml:"per_ip_enabled"`
	PerIPLimit   int      `yaml:"per_ip_limit"`
	PerIPWindow  Duration `yaml:"per_ip_window"`
}

// APIKeyConfig holds API key authentication and tier configuration.
// Allows trusted partners to bypass rate limits via X-API-Key header.
type APIKeyConfig struct {
	Enabled bool              `yaml:"enabled"`
	Keys    map[string]string `yaml:"keys"` // Map of API key -> tier (free, pro, enterprise, partner)
}

// CircuitBreakerConfig holds circuit breaker configuration for the chain adapter's RPC calls.
type CircuitBreakerConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	SolanaRPC BreakerServiceConfig `yaml:"solana_rpc"`
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`         // Max requests in half-open state (default: 3)
	Interval            Duration `yaml:"interval"`             // Stats reset interval in closed state (default: 60s)
	Timeout             Duration `yaml:"timeout"`              // Open state timeout before half-open (default: 30s)
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"` // Consecutive failures to trip (default: 5)
	FailureRatio        float64  `yaml:"failure_ratio"`        // Failure ratio to trip 0.0-1.0 (default: 0.5)
	MinRequests         uint32   `yaml:"min_requests"`         // Minimum requests before checking ratio (default: 10)
}
