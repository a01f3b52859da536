package httpserver

import (
	"encoding/json"
	"net/http"
)

// WellKnownPaymentOptions represents the /.well-known/payment-options response.
// This follows the RFC 8615 well-known URI standard for service discovery.
type WellKnownPaymentOptions struct {
	Version   string                   `json:"version"` // x402 protocol version
	Server    string                   `json:"server"`
	Resources []WellKnownResourceEntry `json:"resources"`
	Payment   WellKnownPaymentInfo     `json:"payment"`
}

// WellKnownResourceEntry represents a single resource in the discovery response.
type WellKnownResourceEntry struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Endpoint    string             `json:"endpoint"`
	Price       WellKnownPriceInfo `json:"price"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// WellKnownPriceInfo is the smallest-unit price of a protected resource.
type WellKnownPriceInfo struct {
	AtomicAmount string `json:"atomicAmount"`
	Token        string `json:"token"`
}

// WellKnownPaymentInfo describes supported payment methods.
type WellKnownPaymentInfo struct {
	Methods []string         `json:"methods"`
	X402    *WellKnownX402Info `json:"x402,omitempty"`
}

// WellKnownX402Info describes x402 payment configuration.
type WellKnownX402Info struct {
	Network        string `json:"network"`
	PaymentAddress string `json:"paymentAddress"`
	TokenMint      string `json:"tokenMint"`
}

// wellKnownPaymentOptions handles GET /.well-known/payment-options. This is a
// standard endpoint for AI agents to discover paid resources.
//
// Follows RFC 8615: https://tools.ietf.org/html/rfc8615
func (h *handlers) wellKnownPaymentOptions(w http.ResponseWriter, r *http.Request) {
	resources := make([]WellKnownResourceEntry, 0, len(h.cfg.Paywall.Resources))
	for id, res := range h.cfg.Paywall.Resources {
		resources = append(resources, WellKnownResourceEntry{
			ID:          id,
			Description: res.Description,
			Endpoint:    h.cfg.Server.RoutePrefix + "/resources/" + id,
			Price: WellKnownPriceInfo{
				AtomicAmount: res.AtomicAmount,
				Token:        res.TokenMint,
			},
			Metadata: res.Metadata,
		})
	}

	response := WellKnownPaymentOptions{
		Version:   "1.0",
		Server:    "x402kit",
		Resources: resources,
		Payment: WellKnownPaymentInfo{
			Methods: []string{"x402-solana-spl-transfer"},
			X402: &WellKnownX402Info{
				Network:        h.cfg.X402.Network,
				PaymentAddress: h.cfg.X402.PaymentAddress,
				TokenMint:      h.cfg.X402.TokenMint,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
