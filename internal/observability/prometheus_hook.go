package observability

import (
	"context"

	"github.com/x402kit/x402/internal/metrics"
)

// PrometheusHook adapts the gateway's Prometheus metrics to the hook
// interface, so Prometheus is just one more subscriber rather than a
// special-cased call site.
type PrometheusHook struct {
	metrics *metrics.Metrics
}

// NewPrometheusHook creates a hook that emits events to Prometheus metrics.
func NewPrometheusHook(m *metrics.Metrics) *PrometheusHook {
	return &PrometheusHook{metrics: m}
}

func (h *PrometheusHook) Name() string {
	return "prometheus"
}

func (h *PrometheusHook) OnPaymentStarted(ctx context.Context, event PaymentStartedEvent) {
	// Prometheus doesn't track "started" events separately - only completions
}

func (h *PrometheusHook) OnPaymentCompleted(ctx context.Context, event PaymentCompletedEvent) {
	h.metrics.ObservePayment("x402", event.ResourceID, event.Success, event.Duration, event.Amount, event.Token)

	if !event.Success && event.ErrorReason != "" {
		h.metrics.ObservePaymentFailure("x402", event.ResourceID, event.ErrorReason)
	}
}

func (h *PrometheusHook) OnPaymentSettled(ctx context.Context, event PaymentSettledEvent) {
	h.metrics.ObserveSettlement(event.Network, event.SettlementDuration)
}

func (h *PrometheusHook) OnRPCCall(ctx context.Context, event RPCCallEvent) {
	var err error
	if !event.Success {
		err = &rpcError{errorType: event.ErrorType}
	}
	h.metrics.ObserveRPCCall(event.Method, event.Network, event.Duration, err)
}

// rpcError is a minimal error type for Prometheus hook.
type rpcError struct {
	errorType string
}

func (e *rpcError) Error() string {
	return e.errorType
}
