// Package solana is the x402 chain adapter binding onto Solana + SPL tokens.
// It is the single normative on-chain binding this module implements; there
// is deliberately no generic multi-chain interface (see pkg/x402/types.go).
package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/x402kit/x402/internal/circuitbreaker"
	"github.com/x402kit/x402/internal/metrics"
)

// Adapter binds x402's chain-agnostic wire model to one Solana RPC/WebSocket
// endpoint pair. Unlike the gasless server-wallet model this package's
// ancestor implemented, an Adapter never holds a fee-payer wallet of its
// own: every transaction it builds names the payer as its own fee payer
// (buildPaymentTransaction step 7), and every transaction it verifies was
// signed and broadcast by the payer, not co-signed by the adapter.
type Adapter struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client
	clock     func() time.Time
	breaker   *circuitbreaker.Manager
	metrics   *metrics.Metrics
	network   string
}

// NewAdapter creates an Adapter backed by an RPC endpoint and, optionally, a
// WebSocket endpoint (derived from rpcURL when wsURL is empty).
func NewAdapter(rpcURL, wsURL string) (*Adapter, error) {
	if rpcURL == "" {
		return nil, errors.New("x402 solana: rpc url required")
	}
	if wsURL == "" {
		derived, err := deriveWebsocketURL(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("x402 solana: derive websocket url: %w", err)
		}
		wsURL = derived
	}

	wsClient, err := ws.Connect(context.Background(), wsURL)
	if err != nil {
		return nil, fmt.Errorf("x402 solana: connect websocket: %w", err)
	}

	return &Adapter{
		rpcClient: rpc.New(rpcURL),
		wsClient:  wsClient,
		clock:     time.Now,
		breaker:   circuitbreaker.NewManager(circuitbreaker.DefaultConfig()),
	}, nil
}

// WithMetrics attaches a metrics collector, labeling RPC observations with network.
func (a *Adapter) WithMetrics(m *metrics.Metrics, network string) *Adapter {
	a.metrics = m
	a.network = network
	return a
}

// WithBreaker overrides the default circuit breaker manager (tests use this
// to install one with Enabled: false).
func (a *Adapter) WithBreaker(m *circuitbreaker.Manager) *Adapter {
	a.breaker = m
	return a
}

// RPCClient returns the underlying RPC client for direct access by callers
// that need operations this adapter doesn't wrap (e.g. health checks).
func (a *Adapter) RPCClient() *rpc.Client {
	return a.rpcClient
}

// MintDecimals reads a token mint's decimals from chain state. Exported so
// callers outside this package (the payer's balance/cap checks) can convert
// a wire decimal amount to the same smallest-unit integer
// BuildPaymentTransaction will compute for the on-chain transfer, without
// duplicating the mint-account decode here.
func (a *Adapter) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	return a.mintDecimals(ctx, mint)
}

// WSClient returns the underlying websocket client for direct access by
// callers that need operations this adapter doesn't wrap (e.g. one-off
// account setup tooling that waits on a signature subscription).
func (a *Adapter) WSClient() *ws.Client {
	return a.wsClient
}

// Close releases the websocket connection. Idempotent.
func (a *Adapter) Close() error {
	if a.wsClient != nil {
		a.wsClient.Close()
		a.wsClient = nil
	}
	return nil
}

// callRPC wraps an RPC call with the Solana circuit breaker and, when
// configured, an RPC-call metric observation.
func (a *Adapter) callRPC(method string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := a.breaker.Execute(circuitbreaker.ServiceSolanaRPC, fn)
	if a.metrics != nil {
		a.metrics.ObserveRPCCall(method, a.network, time.Since(start), err)
	}
	return result, err
}

// GetTokenBalance returns the smallest-unit balance of wallet's associated
// token account for mint. A missing token account is reported as a zero
// balance, not an error — the account simply never received the asset.
func (a *Adapter) GetTokenBalance(ctx context.Context, wallet, mint solana.PublicKey) (*big.Int, error) {
	account, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return nil, fmt.Errorf("x402 solana: derive associated token account: %w", err)
	}

	result, err := a.callRPC("GetTokenAccountBalance", func() (interface{}, error) {
		return a.rpcClient.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	})
	if err != nil {
		if isAccountNotFoundError(err) {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("x402 solana: get token balance: %w", err)
	}

	balance := result.(*rpc.GetTokenAccountBalanceResult)
	if balance == nil || balance.Value == nil {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(balance.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("x402 solana: malformed token balance amount %q", balance.Value.Amount)
	}
	return amount, nil
}

// tokenAccountExists reports whether an account has been initialized on-chain.
func (a *Adapter) tokenAccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	result, err := a.callRPC("GetAccountInfo", func() (interface{}, error) {
		return a.rpcClient.GetAccountInfo(ctx, account)
	})
	if err != nil {
		if isAccountNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	info := result.(*rpc.GetAccountInfoResult)
	return info != nil && info.Value != nil, nil
}
