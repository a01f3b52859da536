package observability

import (
	"context"
	"time"
)

// Hook is the base interface for all observability hooks.
// Implementations can emit events to DataDog, New Relic, OpenTelemetry, etc.
type Hook interface {
	// Name returns the hook's identifier for logging/debugging
	Name() string
}

// PaymentHook receives events during the x402 payment lifecycle.
type PaymentHook interface {
	Hook

	// OnPaymentStarted is called when a 402 challenge is issued.
	OnPaymentStarted(ctx context.Context, event PaymentStartedEvent)

	// OnPaymentCompleted is called when a guard admits or rejects a request.
	OnPaymentCompleted(ctx context.Context, event PaymentCompletedEvent)

	// OnPaymentSettled is called when payment is confirmed on-chain.
	OnPaymentSettled(ctx context.Context, event PaymentSettledEvent)
}

// RPCHook receives events from blockchain RPC calls.
type RPCHook interface {
	Hook

	// OnRPCCall is called after an RPC call completes.
	OnRPCCall(ctx context.Context, event RPCCallEvent)
}

// ===============================================
// Event Types
// ===============================================

// PaymentStartedEvent is emitted when a 402 challenge is issued for a resource.
type PaymentStartedEvent struct {
	Timestamp  time.Time
	PaymentID  string
	ResourceID string
	Amount     int64 // Smallest-unit amount required
	Token      string
	Metadata   map[string]string
}

// PaymentCompletedEvent is emitted when a guard finishes evaluating a request.
type PaymentCompletedEvent struct {
	Timestamp     time.Time
	PaymentID     string
	ResourceID    string
	Success       bool
	ErrorReason   string // Set if Success=false
	Amount        int64
	Token         string
	Wallet        string // Payer public key
	Duration      time.Duration
	TransactionID string // On-chain transaction signature
	Metadata      map[string]string
}

// PaymentSettledEvent is emitted when on-chain settlement is confirmed.
type PaymentSettledEvent struct {
	Timestamp          time.Time
	PaymentID          string
	Network            string
	TransactionID      string
	SettlementDuration time.Duration // Time from payment to settlement
}

// RPCCallEvent is emitted for chain adapter RPC calls.
type RPCCallEvent struct {
	Timestamp time.Time
	Method    string // "getTransaction", "sendTransaction", etc.
	Network   string
	Duration  time.Duration
	Success   bool
	ErrorType string // "timeout", "rate_limit", "connection", "not_found", "other"
	Metadata  map[string]string
}
