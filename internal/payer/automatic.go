package payer

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/x402kit/x402/pkg/x402"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

// AutomaticConfig configures AutomaticClient per spec.md §4.4's enumerated
// options. The zero value is not usable directly — NewAutomaticClient fills
// in the defaults named below.
type AutomaticConfig struct {
	// MaxRetries bounds settle-and-retry iterations. Default 1.
	MaxRetries int
	// AutoRetry, if false, raises PAYMENT_REQUIRED on a 402 instead of
	// settling it.
	AutoRetry bool
	// MaxPaymentAmount is a hard smallest-unit cap; a challenge requiring
	// more is refused with CodePaymentLimitExceeded before any settlement
	// is attempted. Nil or non-positive means no cap.
	MaxPaymentAmount *big.Int
}

func (c AutomaticConfig) withDefaults() AutomaticConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	return c
}

// AutomaticClient drives the full INIT -> AWAIT -> CHAL -> SETTLE -> RETRY
// state machine from spec.md §4.4 over the explicit-mode Client primitives.
type AutomaticClient struct {
	client *Client
	cfg    AutomaticConfig
}

// NewAutomaticClient wraps an explicit-mode Client with automatic
// detect-pay-retry behavior.
func NewAutomaticClient(client *Client, cfg AutomaticConfig) *AutomaticClient {
	return &AutomaticClient{client: client, cfg: cfg.withDefaults()}
}

// requestFactory builds a fresh *http.Request for each attempt — the body
// of a prior attempt cannot be replayed once its reader is drained, so
// callers supply a constructor instead of a built request.
type requestFactory func(ctx context.Context) (*http.Request, error)

// Do runs the automatic state machine to completion: send, detect 402,
// validate the cap, settle, retry, up to MaxRetries times.
func (a *AutomaticClient) Do(ctx context.Context, newRequest requestFactory) (*http.Response, error) {
	var auth *x402.PaymentAuthorization

	for attempt := 0; ; attempt++ {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := a.client.Do(req, auth)
		if err != nil {
			// Transport errors are surfaced as-is, never swallowed.
			return nil, err
		}

		if !a.client.PaymentRequired(resp) {
			return resp, nil
		}

		if !a.cfg.AutoRetry {
			return nil, x402.NewError(x402.CodePaymentRequired, fmt.Errorf("payment required and autoRetry is disabled"))
		}
		if attempt >= a.cfg.MaxRetries {
			return nil, x402.NewError(x402.CodeMaxRetriesExceeded, fmt.Errorf("exhausted %d retr(y/ies) against repeated 402 challenges", a.cfg.MaxRetries))
		}

		challenge, err := a.client.ParsePaymentRequest(resp)
		if err != nil {
			// PAYMENT_EXPIRED / INVALID_PAYMENT_REQUEST are fatal.
			return nil, err
		}

		if a.cfg.MaxPaymentAmount != nil && a.cfg.MaxPaymentAmount.Sign() > 0 {
			mint, err := solana.PublicKeyFromBase58(challenge.AssetAddress)
			if err != nil {
				return nil, x402.NewError(x402.CodeInvalidPaymentRequest, err)
			}
			decimals, err := a.client.adapter.MintDecimals(ctx, mint)
			if err != nil {
				return nil, fmt.Errorf("x402 payer: fetch mint decimals: %w", err)
			}
			required, err := x402solana.ToSmallestUnit(challenge.MaxAmountRequired, decimals)
			if err != nil {
				return nil, x402.NewError(x402.CodeInvalidPaymentRequest, fmt.Errorf("max_amount_required %q: %w", challenge.MaxAmountRequired, err))
			}
			if required.Cmp(a.cfg.MaxPaymentAmount) > 0 {
				return nil, x402.NewError(x402.CodePaymentLimitExceeded, fmt.Errorf("challenge requires %s, exceeds configured cap %s", required, a.cfg.MaxPaymentAmount))
			}
		}

		settled, err := a.client.CreatePayment(ctx, challenge, "")
		if err != nil {
			if xerr, ok := err.(*x402.Error); ok && xerr.Code == x402.CodeTransactionBroadcastFail {
				// Counted against the retry budget; loop to try again.
				auth = nil
				continue
			}
			// PAYMENT_EXPIRED / INSUFFICIENT_FUNDS / INVALID_PAYMENT_REQUEST are fatal.
			return nil, err
		}

		auth = settled
	}
}
