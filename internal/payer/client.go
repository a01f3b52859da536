// Package payer implements the client side of the x402 handshake: detect a
// 402 challenge, validate it, settle on-chain, and retry the request with a
// payment authorization attached.
package payer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/x402kit/x402/pkg/x402"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

// HeaderAuthorization is the only header this client emits or a gatekeeper
// is required to accept; see DESIGN.md Open Question 4.
const HeaderAuthorization = "X-Payment-Authorization"

// Client is the explicit-mode payer: the caller inspects 402s and drives
// settlement itself, one step at a time.
type Client struct {
	adapter    *x402solana.Adapter
	signer     x402solana.Signer
	httpClient *http.Client
	allowLocal bool
	closed     bool
}

// NewClient builds an explicit-mode payer bound to a single chain adapter
// and signer. httpClient may be nil to use http.DefaultClient's zero value
// semantics (a fresh *http.Client{}).
func NewClient(adapter *x402solana.Adapter, signer x402solana.Signer, httpClient *http.Client, allowLocal bool) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{adapter: adapter, signer: signer, httpClient: httpClient, allowLocal: allowLocal}
}

// Close releases the underlying chain adapter's connections. Safe to call
// more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.adapter.Close()
}

// validateURL is the SSRF guard required by §4.6: only http/https schemes,
// and no localhost/private-range hostnames unless allowLocal opted in.
func (c *Client) validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: only http/https allowed", u.Scheme)
	}
	if c.allowLocal {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return fmt.Errorf("requests to localhost are not allowed (set allowLocal to override)")
	}
	if strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "192.168.") {
		return fmt.Errorf("requests to private IP addresses are not allowed (set allowLocal to override)")
	}
	if strings.HasPrefix(host, "172.") {
		parts := strings.SplitN(host, ".", 3)
		if len(parts) >= 2 {
			var second int
			fmt.Sscanf(parts[1], "%d", &second)
			if second >= 16 && second <= 31 {
				return fmt.Errorf("requests to private IP addresses are not allowed (set allowLocal to override)")
			}
		}
	}
	return nil
}

// Do executes req, attaching an authorization header when one is supplied.
// It never treats 402 as an error — callers drive PaymentRequired/ParsePaymentRequest/CreatePayment themselves.
func (c *Client) Do(req *http.Request, auth *x402.PaymentAuthorization) (*http.Response, error) {
	if c.closed {
		return nil, fmt.Errorf("x402 payer: client is closed")
	}
	if err := c.validateURL(req.URL.String()); err != nil {
		return nil, err
	}
	if auth != nil {
		headerValue, err := x402.EncodeAuthorization(auth)
		if err != nil {
			return nil, err
		}
		req.Header.Set(HeaderAuthorization, headerValue)
	}
	return c.httpClient.Do(req)
}

func (c *Client) Get(ctx context.Context, rawURL string, auth *x402.PaymentAuthorization) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req, auth)
}

func (c *Client) Post(ctx context.Context, rawURL string, body []byte, auth *x402.PaymentAuthorization) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, auth)
}

func (c *Client) Put(ctx context.Context, rawURL string, body []byte, auth *x402.PaymentAuthorization) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, auth)
}

func (c *Client) Delete(ctx context.Context, rawURL string, auth *x402.PaymentAuthorization) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req, auth)
}

// PaymentRequired reports whether resp is a 402 challenge.
func (c *Client) PaymentRequired(resp *http.Response) bool {
	return resp.StatusCode == http.StatusPaymentRequired
}

// ParsePaymentRequest decodes resp's body into a PaymentRequest and checks
// it has not already expired.
func (c *Client) ParsePaymentRequest(resp *http.Response) (*x402.PaymentRequest, error) {
	if !c.PaymentRequired(resp) {
		return nil, fmt.Errorf("x402 payer: response is not a 402 challenge")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("x402 payer: read challenge body: %w", err)
	}
	defer resp.Body.Close()

	req, err := x402.DecodeRequest(body)
	if err != nil {
		return nil, err
	}
	if req.IsExpired(time.Now()) {
		return nil, x402.NewError(x402.CodePaymentExpired, fmt.Errorf("payment request %s expired at %s", req.PaymentID, req.ExpiresAt))
	}
	return req, nil
}

// CreatePayment settles req on-chain and returns the resulting authorization
// to attach to the retried request. amount overrides max_amount_required
// when non-empty (a partial payment is never created on the caller's
// behalf beyond what the challenge allows).
func (c *Client) CreatePayment(ctx context.Context, req *x402.PaymentRequest, amount string) (*x402.PaymentAuthorization, error) {
	if c.closed {
		return nil, fmt.Errorf("x402 payer: client is closed")
	}
	if req.IsExpired(time.Now()) {
		return nil, x402.NewError(x402.CodePaymentExpired, fmt.Errorf("payment request %s expired", req.PaymentID))
	}

	// payAmount stays in the wire's decimal UI-unit convention (e.g. "0.10")
	// all the way through this method; BuildPaymentTransaction is the sole
	// place that converts it to a smallest-unit integer for the on-chain
	// transfer (pkg/x402/solana/builder.go). The balance check below needs
	// its own smallest-unit figure to compare against GetTokenBalance, so it
	// converts from the same decimal string rather than reusing a
	// pre-scaled value.
	payAmount := amount
	if payAmount == "" {
		payAmount = req.MaxAmountRequired
	}

	mint, err := solana.PublicKeyFromBase58(req.AssetAddress)
	if err != nil {
		return nil, x402.NewError(x402.CodeInvalidPaymentRequest, err)
	}

	decimals, err := c.adapter.MintDecimals(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("x402 payer: fetch mint decimals: %w", err)
	}
	required, err := x402solana.ToSmallestUnit(payAmount, decimals)
	if err != nil {
		return nil, x402.NewError(x402.CodeInvalidPaymentRequest, fmt.Errorf("amount %q: %w", payAmount, err))
	}

	balance, err := c.adapter.GetTokenBalance(ctx, c.signer.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("x402 payer: check balance: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return nil, x402.NewError(x402.CodeInsufficientFunds, fmt.Errorf("balance %s below required %s", balance, required))
	}

	tx, err := c.adapter.BuildPaymentTransaction(ctx, req, payAmount, c.signer.PublicKey())
	if err != nil {
		return nil, err
	}
	sig, err := c.adapter.SignAndSend(ctx, tx, c.signer)
	if err != nil {
		return nil, err
	}

	return &x402.PaymentAuthorization{
		PaymentID:       req.PaymentID,
		ActualAmount:    payAmount,
		PaymentAddress:  req.PaymentAddress,
		AssetAddress:    req.AssetAddress,
		Network:         req.Network,
		Timestamp:       time.Now(),
		Signature:       sig.String(),
		PublicKey:       c.signer.PublicKey().String(),
		TransactionHash: sig.String(),
	}, nil
}

