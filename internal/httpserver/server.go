package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/x402kit/x402/internal/apikey"
	"github.com/x402kit/x402/internal/config"
	"github.com/x402kit/x402/internal/gatekeeper"
	"github.com/x402kit/x402/internal/idempotency"
	"github.com/x402kit/x402/internal/logger"
	"github.com/x402kit/x402/internal/metrics"
	"github.com/x402kit/x402/internal/ratelimit"
	"github.com/x402kit/x402/internal/versioning"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

var (
	serverStartTime = time.Now()
)

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg              *config.Config
	adapter          *x402solana.Adapter
	guards           map[string]*gatekeeper.Guard
	rpcProxy         *rpcProxyHandlers
	idempotencyStore idempotency.Store
	metrics          *metrics.Metrics
	logger           zerolog.Logger
}

// New builds the HTTP server with configured router. guards holds one
// gatekeeper.Guard per configured resource ID, keyed to cfg.Paywall.Resources.
func New(cfg *config.Config, adapter *x402solana.Adapter, guards map[string]*gatekeeper.Guard, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()
	rpcProxy := NewRPCProxyHandlers(cfg)

	s := &Server{
		handlers: handlers{
			cfg:              cfg,
			adapter:          adapter,
			guards:           guards,
			rpcProxy:         rpcProxy,
			idempotencyStore: idempotencyStore,
			metrics:          metricsCollector,
			logger:           appLogger,
		},
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, adapter, guards, rpcProxy, idempotencyStore, metricsCollector, appLogger)

	return s
}

// ConfigureRouter attaches gateway routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, adapter *x402solana.Adapter, guards map[string]*gatekeeper.Guard, rpcProxy *rpcProxyHandlers, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	handler := handlers{
		cfg:              cfg,
		adapter:          adapter,
		guards:           guards,
		rpcProxy:         rpcProxy,
		idempotencyStore: idempotencyStore,
		metrics:          metricsCollector,
		logger:           appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Payment-Required", "X-Payment-Protocol"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (applied first for all responses)
	router.Use(securityHeadersMiddleware)

	// Add structured logging middleware (BEFORE RequestID for context propagation)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// API version negotiation middleware (adds version to context from Accept header)
	router.Use(versioning.Negotiation)

	// API key authentication middleware (BEFORE rate limiting)
	// Extracts X-API-Key header and stores tier in context for rate limit exemptions
	apiKeyCfg := apikey.Config{
		Enabled: cfg.APIKey.Enabled,
		APIKeys: make(map[string]apikey.Tier),
	}
	for key, tierStr := range cfg.APIKey.Keys {
		apiKeyCfg.APIKeys[key] = apikey.Tier(tierStr)
	}
	router.Use(apikey.Middleware(apiKeyCfg))

	// Rate limiting middleware (applied globally)
	rateLimitCfg := ratelimit.Config{
		GlobalEnabled:    cfg.RateLimit.GlobalEnabled,
		GlobalLimit:      cfg.RateLimit.GlobalLimit,
		GlobalWindow:     cfg.RateLimit.GlobalWindow.Duration,
		GlobalBurst:      cfg.RateLimit.GlobalLimit / 10, // Burst = 10% of limit
		PerWalletEnabled: cfg.RateLimit.PerWalletEnabled,
		PerWalletLimit:   cfg.RateLimit.PerWalletLimit,
		PerWalletWindow:  cfg.RateLimit.PerWalletWindow.Duration,
		PerWalletBurst:   cfg.RateLimit.PerWalletLimit / 6, // Burst = ~17% of limit
		PerIPEnabled:     cfg.RateLimit.PerIPEnabled,
		PerIPLimit:       cfg.RateLimit.PerIPLimit,
		PerIPWindow:      cfg.RateLimit.PerIPWindow.Duration,
		PerIPBurst:       cfg.RateLimit.PerIPLimit / 6, // Burst = ~17% of limit
		Metrics:          metricsCollector,
	}
	router.Use(ratelimit.GlobalLimiter(rateLimitCfg))
	router.Use(ratelimit.WalletLimiter(rateLimitCfg))
	router.Use(ratelimit.IPLimiter(rateLimitCfg))

	// NOTE: Timeout middleware is applied selectively per route group below
	// to avoid imposing a 60s timeout on lightweight discovery/health endpoints

	prefix := cfg.Server.RoutePrefix

	// Lightweight endpoints with 5s timeout (health checks, discovery, documentation, metrics)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/x402-health", handler.health)
		r.Get("/.well-known/payment-options", handler.wellKnownPaymentOptions)
		r.Get("/.well-known/agent.json", handler.agentCard)
		r.Get("/openapi.json", handler.openAPISpec)
		r.Post("/resources/list", handler.mcpResourcesList)
		// Prometheus metrics endpoint (respects route prefix to avoid conflicts).
		// Protected by an optional admin API key (server.admin_metrics_api_key).
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle(prefix+"/metrics", promhttp.Handler())
	})

	// Idempotency middleware (24 hour cache for transaction-building requests)
	idempotencyMW := idempotency.Middleware(idempotencyStore, 24*time.Hour)

	// Payment-gated resources with a 60s timeout (on-chain verification can
	// take multiple confirmations).
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.With(idempotencyMW).Post(prefix+"/rpc/derive-token-account", rpcProxy.deriveTokenAccount)

		for id, guard := range guards {
			r.Method(http.MethodGet, prefix+"/resources/"+id, guard.Protect(id, http.HandlerFunc(handler.paywalledContent)))
		}
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
