package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// AssetType enumerates the asset binding carried by a PaymentRequest.
// "SPL" is the only binding this module implements; the field is kept
// extensible the way the wire model names it as extensible.
type AssetType string

const AssetTypeSPL AssetType = "SPL"

// Network enumerates the Solana clusters a PaymentRequest can target.
type Network string

const (
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet"
	NetworkSolanaTestnet Network = "solana-testnet"
)

// PaymentRequest is the server-to-client 402 challenge body. Field tags are
// the canonical snake_case wire names; producers emit exactly these names
// regardless of the Go field casing.
type PaymentRequest struct {
	MaxAmountRequired string    `json:"max_amount_required"`
	AssetType         AssetType `json:"asset_type"`
	AssetAddress      string    `json:"asset_address"`
	PaymentAddress    string    `json:"payment_address"`
	Network           Network   `json:"network"`
	ExpiresAt         time.Time `json:"expires_at"`
	Nonce             string    `json:"nonce"`
	PaymentID         string    `json:"payment_id"`
	Resource          string    `json:"resource"`
	Description       string    `json:"description,omitempty"`
}

// IsExpired reports whether now >= req.ExpiresAt (invariant 2).
func (r *PaymentRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// missingField names the first empty required field (everything in §3.1
// except the optional description).
func (r *PaymentRequest) missingField() string {
	switch {
	case r.MaxAmountRequired == "":
		return "max_amount_required"
	case r.AssetType == "":
		return "asset_type"
	case r.AssetAddress == "":
		return "asset_address"
	case r.PaymentAddress == "":
		return "payment_address"
	case r.Network == "":
		return "network"
	case r.ExpiresAt.IsZero():
		return "expires_at"
	case r.Nonce == "":
		return "nonce"
	case r.PaymentID == "":
		return "payment_id"
	case r.Resource == "":
		return "resource"
	default:
		return ""
	}
}

// EncodeRequest serializes a PaymentRequest to its canonical JSON form.
// Fails with INVALID_PAYMENT_REQUEST if a required field is absent.
func EncodeRequest(req *PaymentRequest) ([]byte, error) {
	if field := req.missingField(); field != "" {
		return nil, NewError(CodeInvalidPaymentRequest, fmt.Errorf("payment request missing required field %q", field))
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, NewError(CodeInvalidPaymentRequest, err)
	}
	return data, nil
}

// DecodeRequest parses the canonical JSON form of a PaymentRequest.
func DecodeRequest(data []byte) (*PaymentRequest, error) {
	var req PaymentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewError(CodeInvalidPaymentRequest, err)
	}
	if field := req.missingField(); field != "" {
		return nil, NewError(CodeInvalidPaymentRequest, fmt.Errorf("payment request missing required field %q", field))
	}
	return &req, nil
}

// PaymentAuthorization is the client-to-server proof of settlement, carried
// in the X-Payment-Authorization header (legacy body-based authorization is
// not accepted — see DESIGN.md Open Question 4).
type PaymentAuthorization struct {
	PaymentID       string    `json:"payment_id"`
	ActualAmount    string    `json:"actual_amount"`
	PaymentAddress  string    `json:"payment_address"`
	AssetAddress    string    `json:"asset_address"`
	Network         Network   `json:"network"`
	Timestamp       time.Time `json:"timestamp"`
	Signature       string    `json:"signature"`
	PublicKey       string    `json:"public_key"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
}

func (a *PaymentAuthorization) missingField() string {
	switch {
	case a.PaymentID == "":
		return "payment_id"
	case a.ActualAmount == "":
		return "actual_amount"
	case a.PaymentAddress == "":
		return "payment_address"
	case a.AssetAddress == "":
		return "asset_address"
	case a.Network == "":
		return "network"
	case a.Timestamp.IsZero():
		return "timestamp"
	case a.Signature == "":
		return "signature"
	case a.PublicKey == "":
		return "public_key"
	default:
		return ""
	}
}

// EncodeAuthorization produces the base64url(JSON) header value (invariant
// 5: producers emit URL-safe, padded base64).
func EncodeAuthorization(auth *PaymentAuthorization) (string, error) {
	if field := auth.missingField(); field != "" {
		return "", NewError(CodeInvalidPaymentRequest, fmt.Errorf("payment authorization missing required field %q", field))
	}
	data, err := json.Marshal(auth)
	if err != nil {
		return "", NewError(CodeInvalidPaymentRequest, err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeAuthorization parses a header value into a PaymentAuthorization.
// Accepts both base64url and standard base64, padded or unpadded (invariant
// 5's historical-compatibility carve-out).
func DecodeAuthorization(headerValue string) (*PaymentAuthorization, error) {
	data, err := decodeAnyBase64(headerValue)
	if err != nil {
		return nil, NewError(CodeInvalidPaymentRequest, fmt.Errorf("decode base64: %w", err))
	}
	var auth PaymentAuthorization
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, NewError(CodeInvalidPaymentRequest, err)
	}
	if field := auth.missingField(); field != "" {
		return nil, NewError(CodeInvalidPaymentRequest, fmt.Errorf("payment authorization missing required field %q", field))
	}
	return &auth, nil
}

// decodeAnyBase64 tries, in order, URL-safe padded, URL-safe unpadded,
// standard padded, and standard unpadded base64.
func decodeAnyBase64(s string) ([]byte, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var lastErr error
	for _, enc := range decoders {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// There is deliberately no generic multi-chain Verifier/ChainAdapter
// interface here: per spec.md §1's Non-goals ("multi-chain abstraction —
// the core binds one chain adapter at a time"), internal/gatekeeper and
// internal/payer both import pkg/x402/solana.Adapter directly as the single
// normative chain binding.
