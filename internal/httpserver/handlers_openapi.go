package httpserver

import (
	"encoding/json"
	"net/http"
)

// openAPISpec handles GET /openapi.json.
// Returns the OpenAPI 3.0 specification for the gateway's discovery and
// protected-resource endpoints.
func (h *handlers) openAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := h.buildOpenAPISpec(r)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600") // 1-hour cache
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(spec); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// buildOpenAPISpec constructs the OpenAPI 3.0 specification.
func (h *handlers) buildOpenAPISpec(r *http.Request) map[string]interface{} {
	baseURL := h.getServiceEndpoint(r)
	prefix := h.cfg.Server.RoutePrefix

	resourcePaths := map[string]interface{}{}
	for id := range h.cfg.Paywall.Resources {
		resourcePaths[prefix+"/resources/"+id] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Access paywalled resource",
				"description": "Get paywalled content with an x402 payment authorization",
				"operationId": "getResource_" + id,
				"tags":        []string{"Resources"},
				"parameters": []map[string]interface{}{
					{
						"name":        "X-Payment-Authorization",
						"in":          "header",
						"description": "Settled x402 payment authorization (base64-encoded JSON)",
						"required":    false,
						"schema":      map[string]string{"type": "string"},
					},
				},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Payment verified, resource delivered",
					},
					"402": map[string]interface{}{
						"description": "Payment required (x402 challenge)",
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"$ref": "#/components/schemas/PaymentRequest",
								},
							},
						},
					},
				},
			},
		}
	}

	paths := map[string]interface{}{
		"/x402-health": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Health check",
				"description": "Check server health and Solana RPC connectivity",
				"operationId": "healthCheck",
				"tags":        []string{"System"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Server is healthy",
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"status":     map[string]string{"type": "string", "example": "ok"},
										"rpcHealthy": map[string]string{"type": "boolean"},
									},
								},
							},
						},
					},
				},
			},
		},
		"/.well-known/payment-options": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Payment options discovery (RFC 8615)",
				"description": "Web-discoverable endpoint for AI agents to find available paid resources and payment methods",
				"operationId": "getPaymentOptions",
				"tags":        []string{"Discovery"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Payment configuration and resources"},
				},
			},
		},
		"/.well-known/agent.json": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Agent card (A2A protocol)",
				"description": "Google Agent2Agent protocol agent card for agent discovery",
				"operationId": "getAgentCard",
				"tags":        []string{"Discovery"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Agent capabilities and configuration"},
				},
			},
		},
		"/resources/list": map[string]interface{}{
			"post": map[string]interface{}{
				"summary":     "List resources (MCP)",
				"description": "Model Context Protocol (MCP) JSON-RPC 2.0 endpoint for resource discovery",
				"operationId": "listResources",
				"tags":        []string{"Discovery"},
				"requestBody": map[string]interface{}{
					"required": true,
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"jsonrpc": map[string]string{"type": "string", "example": "2.0"},
									"id":      map[string]interface{}{"oneOf": []map[string]string{{"type": "string"}, {"type": "number"}}},
									"method":  map[string]string{"type": "string", "example": "resources/list"},
								},
								"required": []string{"jsonrpc", "id", "method"},
							},
						},
					},
				},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "JSON-RPC response with resource list"},
				},
			},
		},
	}
	for path, def := range resourcePaths {
		paths[path] = def
	}

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":   "x402kit Gateway API",
			"version": "1.0.0",
			"description": "HTTP 402 payment gateway settling stablecoin transfers on Solana.\n\n" +
				"## API Versioning\n\n" +
				"This API uses **content negotiation** for versioning. URLs remain constant, but you can request specific API versions via headers:\n\n" +
				"**Method 1: X-API-Version Header (Recommended)**\n" +
				"```\nX-API-Version: v1\n```\n\n" +
				"**Method 2: Vendor-Specific Media Type**\n" +
				"```\nAccept: application/vnd.x402gate.v1+json\n```\n\n" +
				"If no version is specified, the server defaults to **v1** (current stable).",
			"contact": map[string]string{
				"url": "https://github.com/x402kit/x402",
			},
			"license": map[string]string{
				"name": "MIT",
				"url":  "https://github.com/x402kit/x402/blob/main/LICENSE",
			},
		},
		"servers": []map[string]interface{}{
			{
				"url":         baseURL,
				"description": "x402kit gateway",
			},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"PaymentRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"max_amount_required": map[string]string{"type": "string"},
						"asset_type":          map[string]string{"type": "string"},
						"asset_address":       map[string]string{"type": "string"},
						"payment_address":     map[string]string{"type": "string"},
						"network":             map[string]string{"type": "string"},
						"expires_at":          map[string]string{"type": "string", "format": "date-time"},
						"nonce":               map[string]string{"type": "string"},
						"payment_id":          map[string]string{"type": "string"},
						"resource":            map[string]string{"type": "string"},
						"description":         map[string]string{"type": "string"},
					},
				},
			},
			"securitySchemes": map[string]interface{}{
				"x402": map[string]interface{}{
					"type":        "apiKey",
					"in":          "header",
					"name":        "X-Payment-Authorization",
					"description": "Settled x402 payment authorization (base64-encoded JSON)",
				},
			},
		},
		"tags": []map[string]string{
			{"name": "System", "description": "System endpoints"},
			{"name": "Discovery", "description": "Agent discovery endpoints"},
			{"name": "Resources", "description": "Protected resource access"},
		},
	}
}
