package x402

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func validRequest() *PaymentRequest {
	return &PaymentRequest{
		MaxAmountRequired: "0.10",
		AssetType:         AssetTypeSPL,
		AssetAddress:      "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		PaymentAddress:    "3NbcVoU5oVqwE6zZpBYv4eSVQhnFHYt3wqE4HdLYNDJr",
		Network:           NetworkSolanaDevnet,
		ExpiresAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Nonce:             "nonce-1",
		PaymentID:         "pay-1",
		Resource:          "/api/data",
	}
}

func validAuthorization() *PaymentAuthorization {
	return &PaymentAuthorization{
		PaymentID:      "pay-1",
		ActualAmount:   "0.10",
		PaymentAddress: "3NbcVoU5oVqwE6zZpBYv4eSVQhnFHYt3wqE4HdLYNDJr",
		AssetAddress:   "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Network:        NetworkSolanaDevnet,
		Timestamp:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Signature:      "5h3J...sig",
		PublicKey:      "payerPubkey",
	}
}

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	req := validRequest()
	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	got, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.PaymentID != req.PaymentID || got.MaxAmountRequired != req.MaxAmountRequired {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestEncodeRequestMissingField(t *testing.T) {
	req := validRequest()
	req.PaymentAddress = ""
	if _, err := EncodeRequest(req); err == nil {
		t.Fatal("expected error for missing payment_address")
	} else if xerr, ok := err.(*Error); !ok || xerr.Code != CodeInvalidPaymentRequest {
		t.Fatalf("expected INVALID_PAYMENT_REQUEST, got %v", err)
	}
}

func TestIsExpired(t *testing.T) {
	req := validRequest()
	if req.IsExpired(req.ExpiresAt.Add(-time.Second)) {
		t.Fatal("should not be expired before expires_at")
	}
	if !req.IsExpired(req.ExpiresAt) {
		t.Fatal("now == expires_at must count as expired (invariant 2)")
	}
	if !req.IsExpired(req.ExpiresAt.Add(time.Second)) {
		t.Fatal("should be expired after expires_at")
	}
}

func TestEncodeAuthorizationProducesURLSafeBase64(t *testing.T) {
	auth := validAuthorization()
	header, err := EncodeAuthorization(auth)
	if err != nil {
		t.Fatalf("EncodeAuthorization: %v", err)
	}
	if strings.ContainsAny(header, "+/") {
		t.Fatalf("expected URL-safe base64, got %q", header)
	}
	got, err := DecodeAuthorization(header)
	if err != nil {
		t.Fatalf("DecodeAuthorization: %v", err)
	}
	if got.PaymentID != auth.PaymentID || got.ActualAmount != auth.ActualAmount {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, auth)
	}
}

func TestDecodeAuthorizationAcceptsStandardBase64(t *testing.T) {
	auth := validAuthorization()
	data, err := EncodeRequest(validRequest())
	_ = data
	_ = err

	// Standard-base64-with-padding encoding of the same JSON must decode
	// identically to the URL-safe form (invariant 5).
	raw, err := json.Marshal(auth)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	header := base64.StdEncoding.EncodeToString(raw)
	got, err := DecodeAuthorization(header)
	if err != nil {
		t.Fatalf("DecodeAuthorization: %v", err)
	}
	if got.Signature != auth.Signature {
		t.Fatalf("signature mismatch after decode: got %q want %q", got.Signature, auth.Signature)
	}
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	if _, err := DecodeRequest([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeAuthorizationInvalidBase64(t *testing.T) {
	if _, err := DecodeAuthorization("!!!not-base64!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}
