package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

type recordingHook struct {
	name      string
	started   int
	completed int
	settled   int
	rpcCalls  int
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) OnPaymentStarted(ctx context.Context, event PaymentStartedEvent) {
	h.started++
}

func (h *recordingHook) OnPaymentCompleted(ctx context.Context, event PaymentCompletedEvent) {
	h.completed++
}

func (h *recordingHook) OnPaymentSettled(ctx context.Context, event PaymentSettledEvent) {
	h.settled++
}

func (h *recordingHook) OnRPCCall(ctx context.Context, event RPCCallEvent) {
	h.rpcCalls++
}

func TestRegistry_DispatchesToAllRegisteredHooks(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	first := &recordingHook{name: "first"}
	second := &recordingHook{name: "second"}
	r.RegisterPaymentHook(first)
	r.RegisterPaymentHook(second)
	r.RegisterRPCHook(first)

	ctx := context.Background()
	r.EmitPaymentStarted(ctx, PaymentStartedEvent{ResourceID: "article-1"})
	r.EmitPaymentCompleted(ctx, PaymentCompletedEvent{ResourceID: "article-1", Success: true})
	r.EmitPaymentSettled(ctx, PaymentSettledEvent{Network: "solana-mainnet"})
	r.EmitRPCCall(ctx, RPCCallEvent{Method: "getTransaction", Success: true})

	if first.started != 1 || first.completed != 1 || first.settled != 1 {
		t.Errorf("expected first hook to observe one of each payment event, got %+v", first)
	}
	if second.started != 1 || second.completed != 1 || second.settled != 1 {
		t.Errorf("expected second hook to observe one of each payment event, got %+v", second)
	}
	if first.rpcCalls != 1 {
		t.Errorf("expected 1 RPC call observed, got %d", first.rpcCalls)
	}
	if second.rpcCalls != 0 {
		t.Errorf("second hook was never registered for RPC events, got %d", second.rpcCalls)
	}
}

type panickingHook struct{}

func (panickingHook) Name() string { return "panicker" }
func (panickingHook) OnPaymentStarted(ctx context.Context, event PaymentStartedEvent) {
	panic("boom")
}
func (panickingHook) OnPaymentCompleted(ctx context.Context, event PaymentCompletedEvent) {}
func (panickingHook) OnPaymentSettled(ctx context.Context, event PaymentSettledEvent)      {}

func TestRegistry_RecoversFromHookPanic(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.RegisterPaymentHook(panickingHook{})
	survivor := &recordingHook{name: "survivor"}
	r.RegisterPaymentHook(survivor)

	r.EmitPaymentStarted(context.Background(), PaymentStartedEvent{ResourceID: "article-1"})

	if survivor.started != 1 {
		t.Error("a panicking hook must not prevent later hooks from running")
	}
}
