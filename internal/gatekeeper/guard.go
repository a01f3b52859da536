package gatekeeper

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"time"

	gwerrors "github.com/x402kit/x402/internal/errors"
	"github.com/x402kit/x402/internal/logger"
	"github.com/x402kit/x402/internal/observability"
	"github.com/x402kit/x402/internal/replay"
	"github.com/x402kit/x402/pkg/x402"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

// HeaderAuthorization is the request header a payer attaches a settled
// PaymentAuthorization under. It is the sole accepted channel — there is no
// body-based fallback (see DESIGN.md Open Question 4).
const HeaderAuthorization = "X-Payment-Authorization"

type contextKey string

const (
	contextKeyAuthorization contextKey = "gatekeeper.authorization"
	contextKeyResourceID    contextKey = "gatekeeper.resourceID"
)

// Guard enforces one Policy in front of a handler, implementing spec.md
// §4.5's guard(policy, handler) request-time algorithm: read the
// authorization header, emit a 402 challenge when absent, validate the
// returning authorization against policy, claim its payment_id against
// replay, optionally verify it on-chain, and admit.
type Guard struct {
	policy   Policy
	adapter  *x402solana.Adapter
	replay   replay.Store
	claimTTL time.Duration
	observer *observability.Registry
}

// NewGuard builds a Guard. adapter is used for the on-chain verify step;
// it may be nil only when policy.SkipVerification is true. store claims each
// authorization's payment_id exactly once before admitting — pass a
// replay.NewMemoryStore(0) when no external store is configured. A nil
// store skips the replay claim entirely.
func NewGuard(policy Policy, adapter *x402solana.Adapter, store replay.Store) *Guard {
	return &Guard{
		policy:   policy.withDefaults(),
		adapter:  adapter,
		replay:   store,
		claimTTL: policy.withDefaults().ExpiresIn,
	}
}

// WithObserver attaches a hook registry that the guard reports payment
// lifecycle events to. Optional; a Guard with no observer just skips
// dispatch.
func (g *Guard) WithObserver(registry *observability.Registry) *Guard {
	g.observer = registry
	return g
}

func (g *Guard) emitStarted(ctx context.Context, resourceID string, required *big.Int) {
	if g.observer == nil {
		return
	}
	g.observer.EmitPaymentStarted(ctx, observability.PaymentStartedEvent{
		ResourceID: resourceID,
		Amount:     required.Int64(),
		Token:      g.policy.TokenMint,
	})
}

func (g *Guard) emitCompleted(ctx context.Context, start time.Time, resourceID string, auth *x402.PaymentAuthorization, success bool, errReason string) {
	if g.observer == nil {
		return
	}
	event := observability.PaymentCompletedEvent{
		ResourceID:  resourceID,
		Success:     success,
		ErrorReason: errReason,
		Token:       g.policy.TokenMint,
		Duration:    time.Since(start),
	}
	if auth != nil {
		event.PaymentID = auth.PaymentID
		event.Wallet = auth.PublicKey
		event.TransactionID = auth.TransactionHash
		if amount, ok := new(big.Int).SetString(auth.ActualAmount, 10); ok {
			event.Amount = amount.Int64()
		}
	}
	g.observer.EmitPaymentCompleted(ctx, event)
}

// resourceResolver extracts the resource identifier a protected request maps
// to, analogous to the teacher's paywall.ResourceResolver.
type resourceResolver func(*http.Request) string

// Protect wraps next so that it only runs once a valid, (optionally)
// on-chain-verified PaymentAuthorization accompanies the request. resource
// identifies the protected resource in issued challenges and replay claims.
func (g *Guard) Protect(resource string, next http.Handler) http.Handler {
	return g.ProtectFunc(func(*http.Request) string { return resource }, next)
}

// ProtectFunc is Protect with a per-request resource identifier, for routes
// whose resource varies with the request (e.g. a path parameter).
func (g *Guard) ProtectFunc(resolve resourceResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resourceID := resolve(r)
		log := logger.FromContext(r.Context())

		headerValue := strings.TrimSpace(r.Header.Get(HeaderAuthorization))
		if headerValue == "" {
			if required, rerr := g.policy.requiredAmount(); rerr == nil {
				g.emitStarted(r.Context(), resourceID, required)
			}
			g.writeChallenge(w, r, resourceID)
			return
		}

		auth, err := x402.DecodeAuthorization(headerValue)
		if err != nil {
			g.writeError(w, err)
			g.emitCompleted(r.Context(), start, resourceID, nil, false, err.Error())
			return
		}

		if verr := g.checkPolicy(auth); verr != nil {
			if xerr, ok := verr.(*x402.Error); ok && xerr.Code == x402.CodeInsufficientPayment {
				required, _ := g.policy.requiredAmount()
				g.writeErrorDetails(w, xerr, map[string]any{
					"required": required.String(),
					"provided": auth.ActualAmount,
				})
				g.emitCompleted(r.Context(), start, resourceID, auth, false, verr.Error())
				return
			}
			g.writeError(w, verr)
			g.emitCompleted(r.Context(), start, resourceID, auth, false, verr.Error())
			return
		}

		if g.replay != nil {
			firstResourceID, alreadyClaimed, err := g.replay.Claim(r.Context(), auth.PaymentID, resourceID, g.claimTTL)
			if err != nil {
				g.writeError(w, x402.NewError(x402.CodePaymentVerificationFailed, err))
				g.emitCompleted(r.Context(), start, resourceID, auth, false, err.Error())
				return
			}
			if alreadyClaimed && firstResourceID != resourceID {
				g.writeError(w, x402.NewError(x402.CodeInvalidPaymentRequest, errAlreadyClaimedElsewhere))
				g.emitCompleted(r.Context(), start, resourceID, auth, false, errAlreadyClaimedElsewhere.Error())
				return
			}
		}

		if !g.policy.SkipVerification {
			if verr := g.verifyOnChain(r.Context(), auth); verr != nil {
				g.writeError(w, verr)
				g.emitCompleted(r.Context(), start, resourceID, auth, false, verr.Error())
				return
			}
			if g.observer != nil {
				g.observer.EmitPaymentSettled(r.Context(), observability.PaymentSettledEvent{
					PaymentID:          auth.PaymentID,
					Network:            string(g.policy.Network),
					TransactionID:      auth.TransactionHash,
					SettlementDuration: time.Since(start),
				})
			}
		}

		log.Info().
			Str("payment_id", auth.PaymentID).
			Str("resource", resourceID).
			Msg("gatekeeper.admitted")

		g.emitCompleted(r.Context(), start, resourceID, auth, true, "")

		ctx := context.WithValue(r.Context(), contextKeyAuthorization, *auth)
		ctx = context.WithValue(ctx, contextKeyResourceID, resourceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// checkPolicy runs the four field-validation checks from §4.5 step 4 /
// invariant 3: insufficient payment, payment address mismatch, token mint
// mismatch, network mismatch. payment_id is checked separately by the
// replay store's Claim call in ProtectFunc.
func (g *Guard) checkPolicy(auth *x402.PaymentAuthorization) error {
	required, err := g.policy.requiredAmount()
	if err != nil {
		return x402.NewError(x402.CodeInvalidPaymentRequest, err)
	}
	actual, ok := new(big.Int).SetString(auth.ActualAmount, 10)
	if !ok {
		return x402.NewError(x402.CodeInvalidPaymentRequest, errMalformedAmount)
	}
	if actual.Cmp(required) < 0 {
		return x402.NewError(x402.CodeInsufficientPayment, errInsufficientPayment)
	}
	if auth.PaymentAddress != g.policy.PaymentAddress {
		return x402.NewError(x402.CodePaymentAddressMismatch, errAddressMismatch)
	}
	if auth.AssetAddress != g.policy.TokenMint {
		return x402.NewError(x402.CodeTokenMintMismatch, errMintMismatch)
	}
	if auth.Network != g.policy.Network {
		return x402.NewError(x402.CodeNetworkMismatch, errNetworkMismatch)
	}
	return nil
}

// verifyOnChain runs the full on-chain check via the chain adapter (§4.5
// step 5, the full-verification floor per DESIGN.md Open Question 3).
func (g *Guard) verifyOnChain(ctx context.Context, auth *x402.PaymentAuthorization) error {
	recipient, err := g.policy.paymentAddressPubkey()
	if err != nil {
		return x402.NewError(x402.CodePaymentAddressMismatch, err)
	}
	mint, err := g.policy.tokenMintPubkey()
	if err != nil {
		return x402.NewError(x402.CodeTokenMintMismatch, err)
	}
	required, err := g.policy.requiredAmount()
	if err != nil {
		return x402.NewError(x402.CodeInvalidPaymentRequest, err)
	}

	txHash := auth.TransactionHash
	if txHash == "" {
		txHash = auth.Signature
	}
	rpcStart := time.Now()
	ok, err := g.adapter.Verify(ctx, txHash, recipient, required, mint)
	if g.observer != nil {
		event := observability.RPCCallEvent{
			Method:   "verifyTransfer",
			Network:  string(g.policy.Network),
			Duration: time.Since(rpcStart),
			Success:  err == nil,
		}
		if err != nil {
			event.ErrorType = "other"
		}
		g.observer.EmitRPCCall(ctx, event)
	}
	if err != nil {
		return err
	}
	if !ok {
		return x402.NewError(x402.CodePaymentVerificationFailed, errVerificationFailed)
	}
	return nil
}

// writeChallenge emits a fresh 402 PaymentRequest, per §4.5 step 2.
func (g *Guard) writeChallenge(w http.ResponseWriter, r *http.Request, resourceID string) {
	nonce, err := replay.GenerateNonce()
	if err != nil {
		gwerrors.WriteSimpleError(w, x402.CodeInternalError, "failed to issue payment challenge")
		return
	}
	paymentID, err := replay.GenerateNonce()
	if err != nil {
		gwerrors.WriteSimpleError(w, x402.CodeInternalError, "failed to issue payment challenge")
		return
	}

	req := &x402.PaymentRequest{
		MaxAmountRequired: g.policy.Amount,
		AssetType:         x402.AssetTypeSPL,
		AssetAddress:      g.policy.TokenMint,
		PaymentAddress:    g.policy.PaymentAddress,
		Network:           g.policy.Network,
		ExpiresAt:         time.Now().Add(g.policy.ExpiresIn),
		Nonce:             nonce,
		PaymentID:         paymentID,
		Resource:          resourceID,
		Description:       g.policy.Description,
	}

	body, err := x402.EncodeRequest(req)
	if err != nil {
		g.writeError(w, err)
		return
	}

	w.Header().Set("X-Payment-Required", "true")
	w.Header().Set("X-Payment-Protocol", "x402")
	w.Header().Set("X-Payment-Amount", req.MaxAmountRequired)
	w.Header().Set("X-Payment-Asset", req.AssetAddress)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_, _ = w.Write(body)
}

// writeError reports a *x402.Error (or a VerificationError) at its mapped
// HTTP status with a stable JSON body.
func (g *Guard) writeError(w http.ResponseWriter, err error) {
	code := x402.CodeInvalidPaymentRequest
	message := err.Error()

	switch e := err.(type) {
	case *x402.Error:
		code = e.Code
		message = e.Error()
	case x402.VerificationError:
		code = e.Code
		message = e.Error()
	}

	gwerrors.WriteSimpleError(w, code, message)
}

// writeErrorDetails is writeError with extra structured fields merged into
// the JSON body, used to echo required/provided amounts on
// INSUFFICIENT_PAYMENT (DESIGN.md Open Question 2).
func (g *Guard) writeErrorDetails(w http.ResponseWriter, err *x402.Error, details map[string]any) {
	gwerrors.WriteError(w, err.Code, err.Error(), details)
}

// AuthorizationFromContext retrieves the admitted authorization for logging
// or auditing downstream of a Guard.
func AuthorizationFromContext(ctx context.Context) (x402.PaymentAuthorization, bool) {
	val := ctx.Value(contextKeyAuthorization)
	if val == nil {
		return x402.PaymentAuthorization{}, false
	}
	auth, ok := val.(x402.PaymentAuthorization)
	return auth, ok
}

// ResourceIDFromContext retrieves the resolved resource identifier.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(contextKeyResourceID)
	if id, ok := val.(string); ok {
		return id, true
	}
	return "", false
}
