package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402kit/x402/internal/gatekeeper"
	"github.com/x402kit/x402/pkg/responders"
)

// health returns service health status including RPC connectivity.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := time.Now()
	uptime := now.Sub(serverStartTime)
	rpcHealthy := h.checkRPCHealth(ctx)

	status := "ok"
	statusCode := http.StatusOK
	if !rpcHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]any{
		"status":     status,
		"uptime":     uptime.String(),
		"timestamp":  now.UTC(),
		"rpcHealthy": rpcHealthy,
		"network":    h.cfg.X402.Network,
	}
	if h.cfg.Server.RoutePrefix != "" {
		response["routePrefix"] = h.cfg.Server.RoutePrefix
	}

	responders.JSON(w, statusCode, response)
}

// checkRPCHealth verifies Solana RPC connectivity.
func (h *handlers) checkRPCHealth(ctx context.Context) bool {
	if h.adapter == nil {
		return false
	}
	client := h.adapter.RPCClient()
	if client == nil {
		return false
	}
	_, err := client.GetSlot(ctx, rpc.CommitmentFinalized)
	return err == nil
}

// paywalledContent serves protected content after payment verification. It
// is the default handler wired for every configured resource that doesn't
// already front an application-specific handler.
func (h *handlers) paywalledContent(w http.ResponseWriter, r *http.Request) {
	resourceID, _ := gatekeeper.ResourceIDFromContext(r.Context())
	auth, _ := gatekeeper.AuthorizationFromContext(r.Context())

	payload := map[string]any{
		"resource": resourceID,
		"granted":  true,
	}
	if auth.PublicKey != "" {
		payload["wallet"] = auth.PublicKey
	}
	if auth.TransactionHash != "" {
		payload["signature"] = auth.TransactionHash
	}

	responders.JSON(w, http.StatusOK, payload)
}
