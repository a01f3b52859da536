package config

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// knownStablecoinMints maps recognized stablecoin mint addresses to their
// symbol. Payments are priced in smallest-unit integers assuming a $1 peg, so
// a misconfigured mint silently mispriced every resource on the gateway.
var knownStablecoinMints = map[string]string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo": "PYUSD",
}

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Paywall.ChallengeTTL.Duration == 0 {
		c.Paywall.ChallengeTTL = Duration{Duration: 5 * time.Minute}
	}
	if c.Replay.Backend == "" {
		c.Replay.Backend = "memory"
	}
	if c.X402.Commitment == "" {
		c.X402.Commitment = string(rpc.CommitmentConfirmed)
	}
	switch strings.ToLower(c.X402.Commitment) {
	case "processed", "confirmed", "finalized", "finalised":
	default:
		c.X402.Commitment = string(rpc.CommitmentConfirmed)
	}

	// Each resource inherits the gateway-wide payment address and token mint
	// unless it names its own, so a single operator wallet covers the whole
	// catalog by default.
	for key, resource := range c.Paywall.Resources {
		if resource.ResourceID == "" {
			resource.ResourceID = key
		}
		if resource.TokenMint == "" {
			resource.TokenMint = c.X402.TokenMint
		}
		if resource.PaymentAddress == "" {
			resource.PaymentAddress = c.X402.PaymentAddress
		}
		c.Paywall.Resources[key] = resource
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	if len(c.Paywall.Resources) == 0 {
		errs = append(errs, "paywall.resources must define at least one resource")
	}
	for name, resource := range c.Paywall.Resources {
		if resource.AtomicAmount == "" {
			errs = append(errs, fmt.Sprintf("paywall.resource %q must define atomic_amount", name))
		}
		if resource.PaymentAddress == "" {
			errs = append(errs, fmt.Sprintf("paywall.resource %q has no payment_address and x402.payment_address is unset", name))
		}
		if resource.TokenMint == "" {
			errs = append(errs, fmt.Sprintf("paywall.resource %q has no token_mint and x402.token_mint is unset", name))
		}
	}

	if c.X402.PaymentAddress == "" {
		errs = append(errs, "x402.payment_address is required")
	}
	if c.X402.TokenMint == "" {
		errs = append(errs, "x402.token_mint is required")
	} else if err := validateStablecoinMint(c.X402.TokenMint); err != nil {
		errs = append(errs, fmt.Sprintf("x402.token_mint validation failed: %v", err))
	}
	if c.X402.RPCURL == "" {
		errs = append(errs, "x402.rpc_url is required")
	}

	if c.X402.WSURL == "" && c.X402.RPCURL != "" {
		wsURL, err := deriveWebsocketURL(c.X402.RPCURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("derive websocket url: %v", err))
		} else {
			c.X402.WSURL = wsURL
		}
	}

	if c.Replay.Backend == "postgres" && c.Replay.PostgresURL == "" {
		errs = append(errs, "replay.postgres_url is required when replay.backend is 'postgres'")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// deriveWebsocketURL converts an HTTP(S) RPC URL to WS(S) format.
func deriveWebsocketURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("rpc url empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
		return raw, nil
	case "":
		return "", errors.New("rpc url missing scheme")
	default:
		return "", fmt.Errorf("unsupported rpc url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// ApplyPostgresPoolSettings applies connection pool settings to a database connection.
// If pool config is not specified, applies sensible defaults.
func ApplyPostgresPoolSettings(db *sql.DB, pool PostgresPoolConfig) {
	maxOpen := pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	maxLifetime := pool.ConnMaxLifetime.Duration
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}

// validateStablecoinMint checks the configured token mint against the known
// stablecoin allowlist. Amounts are priced in smallest-unit integers assuming
// a $1 peg; a non-stablecoin mint would silently mean "1 unit" no longer
// means "one dollar".
func validateStablecoinMint(mintAddress string) error {
	if _, ok := knownStablecoinMints[mintAddress]; ok {
		return nil
	}
	return fmt.Errorf("mint %q is not a recognized stablecoin (expected one of USDC, USDT, PYUSD)", mintAddress)
}
