// Package gatekeeper implements the server side of the x402 handshake:
// emit a 402 challenge, parse a returning authorization, validate it
// against policy, optionally verify it on-chain, and admit the request.
package gatekeeper

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/x402kit/x402/pkg/x402"
)

// Policy describes one protected resource's payment requirements, matching
// spec.md §4.5's guard(policy, handler) contract.
type Policy struct {
	// Amount is the required smallest-unit amount, as a decimal string.
	Amount string
	// PaymentAddress is the wallet that must receive payment. Required.
	PaymentAddress string
	// TokenMint is the SPL mint that must be transferred. Required.
	TokenMint string
	// Network defaults to NetworkSolanaMainnet when empty.
	Network x402.Network
	// Description is surfaced in the 402 challenge body.
	Description string
	// ExpiresIn bounds how long an issued challenge stays valid. Defaults
	// to 300s.
	ExpiresIn time.Duration
	// SkipVerification disables the chain adapter's on-chain verify step.
	// On-chain verification is on by default (DESIGN.md Open Question 1);
	// this exists for test/offline harnesses that have no RPC endpoint.
	SkipVerification bool
}

func (p Policy) withDefaults() Policy {
	if p.Network == "" {
		p.Network = x402.NetworkSolanaMainnet
	}
	if p.ExpiresIn <= 0 {
		p.ExpiresIn = 300 * time.Second
	}
	return p
}

func (p Policy) requiredAmount() (*big.Int, error) {
	n, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("policy amount %q is not a smallest-unit integer", p.Amount)
	}
	return n, nil
}

func (p Policy) paymentAddressPubkey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(p.PaymentAddress)
}

func (p Policy) tokenMintPubkey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(p.TokenMint)
}
