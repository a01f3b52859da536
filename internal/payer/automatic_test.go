package payer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/x402kit/x402/pkg/x402"
)

func TestAutomaticClient_PassesThroughNon402(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client(), allowLocal: true}
	auto := NewAutomaticClient(client, AutomaticConfig{})

	resp, err := auto.Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAutomaticClient_AutoRetryDisabledSurfacesPaymentRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client(), allowLocal: true}
	auto := NewAutomaticClient(client, AutomaticConfig{AutoRetry: false})

	_, err := auto.Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error when autoRetry is disabled and server returns 402")
	}
	xerr, ok := err.(*x402.Error)
	if !ok {
		t.Fatalf("expected *x402.Error, got %T", err)
	}
	if xerr.Code != x402.CodePaymentRequired {
		t.Errorf("expected CodePaymentRequired, got %s", xerr.Code)
	}
}

func TestAutomaticClient_InvalidChallengeIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"not":"a valid payment request"}`))
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client(), allowLocal: true}
	auto := NewAutomaticClient(client, AutomaticConfig{AutoRetry: true, MaxRetries: 3})

	_, err := auto.Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error for malformed payment request")
	}
}
