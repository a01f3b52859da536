package observability

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Registry manages a collection of observability hooks and safely dispatches
// events to all registered hooks, recovering from any hook panic.
type Registry struct {
	paymentHooks []PaymentHook
	rpcHooks     []RPCHook
	logger       zerolog.Logger
	mu           sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

// RegisterPaymentHook adds a payment hook to the registry.
func (r *Registry) RegisterPaymentHook(hook PaymentHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paymentHooks = append(r.paymentHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered payment hook")
}

// RegisterRPCHook adds an RPC hook to the registry.
func (r *Registry) RegisterRPCHook(hook RPCHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rpcHooks = append(r.rpcHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered RPC hook")
}

// EmitPaymentStarted dispatches the event to all payment hooks.
func (r *Registry) EmitPaymentStarted(ctx context.Context, event PaymentStartedEvent) {
	r.mu.RLock()
	hooks := r.paymentHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnPaymentStarted", hook.Name())
			hook.OnPaymentStarted(ctx, event)
		}()
	}
}

// EmitPaymentCompleted dispatches the event to all payment hooks.
func (r *Registry) EmitPaymentCompleted(ctx context.Context, event PaymentCompletedEvent) {
	r.mu.RLock()
	hooks := r.paymentHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnPaymentCompleted", hook.Name())
			hook.OnPaymentCompleted(ctx, event)
		}()
	}
}

// EmitPaymentSettled dispatches the event to all payment hooks.
func (r *Registry) EmitPaymentSettled(ctx context.Context, event PaymentSettledEvent) {
	r.mu.RLock()
	hooks := r.paymentHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnPaymentSettled", hook.Name())
			hook.OnPaymentSettled(ctx, event)
		}()
	}
}

// EmitRPCCall dispatches the event to all RPC hooks.
func (r *Registry) EmitRPCCall(ctx context.Context, event RPCCallEvent) {
	r.mu.RLock()
	hooks := r.rpcHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnRPCCall", hook.Name())
			hook.OnRPCCall(ctx, event)
		}()
	}
}

// recoverPanic recovers from panics in hook implementations so one bad hook
// can't crash request handling.
func (r *Registry) recoverPanic(method, hookName string) {
	if err := recover(); err != nil {
		r.logger.Error().
			Str("hook", hookName).
			Str("method", method).
			Interface("panic", err).
			Msg("observability hook panicked (recovered)")
	}
}
