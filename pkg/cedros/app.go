package cedros

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/x402kit/x402/internal/circuitbreaker"
	"github.com/x402kit/x402/internal/config"
	"github.com/x402kit/x402/internal/gatekeeper"
	"github.com/x402kit/x402/internal/httpserver"
	"github.com/x402kit/x402/internal/idempotency"
	"github.com/x402kit/x402/internal/lifecycle"
	"github.com/x402kit/x402/internal/logger"
	"github.com/x402kit/x402/internal/metrics"
	"github.com/x402kit/x402/internal/observability"
	"github.com/x402kit/x402/internal/replay"
	"github.com/x402kit/x402/pkg/x402"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

// App wires the x402kit gateway components for reuse or standalone serving.
type App struct {
	Config           *config.Config
	Adapter          *x402solana.Adapter
	Replay           replay.Store
	Guards           map[string]*gatekeeper.Guard
	Observability    *observability.Registry
	IdempotencyStore idempotency.Store

	router           chi.Router
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	replay  replay.Store
	adapter *x402solana.Adapter
	router  chi.Router
}

// WithReplayStore injects a custom payment-id claim registry, bypassing the
// cfg.Replay backend selection.
func WithReplayStore(store replay.Store) Option {
	return func(o *options) {
		o.replay = store
	}
}

// WithAdapter injects a pre-constructed chain adapter, bypassing the
// cfg.X402 RPC dial.
func WithAdapter(adapter *x402solana.Adapter) Option {
	return func(o *options) {
		o.adapter = adapter
	}
}

// WithRouter allows callers to provide an existing chi.Router to register routes onto.
func WithRouter(router chi.Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// NewApp assembles the x402 gateway for embedding: one chain adapter, one
// replay registry, and one gatekeeper.Guard per configured resource.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("cedros: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	metricsCollector := metrics.New(prometheus.DefaultRegisterer)
	app.metricsCollector = metricsCollector

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "x402kit-gateway",
		Environment: cfg.Logging.Environment,
	})

	if optState.replay != nil {
		app.Replay = optState.replay
	} else {
		switch cfg.Replay.Backend {
		case "postgres":
			store, err := replay.NewPostgresStore(cfg.Replay.PostgresURL, cfg.Replay.PostgresPool)
			if err != nil {
				return nil, fmt.Errorf("init postgres replay store: %w", err)
			}
			app.Replay = store
			app.resourceManager.Register("replay-store", store)
		default:
			store := replay.NewMemoryStore(0)
			app.Replay = store
			app.resourceManager.RegisterFunc("replay-store", func() error {
				store.Stop()
				return nil
			})
			log.Warn().
				Msg("x402kit: defaulting to in-memory replay store – payment_id claims do not survive a restart or scale past one process")
		}
	}

	if optState.adapter != nil {
		app.Adapter = optState.adapter
	} else {
		adapter, err := x402solana.NewAdapter(cfg.X402.RPCURL, cfg.X402.WSURL)
		if err != nil {
			return nil, fmt.Errorf("init solana adapter: %w", err)
		}
		adapter = adapter.WithMetrics(metricsCollector, cfg.X402.Network)
		if cfg.CircuitBreaker.Enabled {
			breakerManager := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)
			adapter = adapter.WithBreaker(breakerManager)
		}
		app.Adapter = adapter
		app.resourceManager.RegisterFunc("solana-adapter", adapter.Close)
	}

	observer := observability.NewRegistry(appLogger)
	observer.RegisterPaymentHook(observability.NewPrometheusHook(metricsCollector))
	app.Observability = observer

	if len(cfg.Paywall.Resources) == 0 {
		return nil, errors.New("cedros: paywall.resources must define at least one resource")
	}

	guards := make(map[string]*gatekeeper.Guard, len(cfg.Paywall.Resources))
	for id, resource := range cfg.Paywall.Resources {
		policy := gatekeeper.Policy{
			Amount:           resource.AtomicAmount,
			PaymentAddress:   resource.PaymentAddress,
			TokenMint:        resource.TokenMint,
			Network:          x402.Network(cfg.X402.Network),
			Description:      resource.Description,
			ExpiresIn:        cfg.Paywall.ChallengeTTL.Duration,
			SkipVerification: resource.SkipVerification,
		}
		guards[id] = gatekeeper.NewGuard(policy, app.Adapter, app.Replay).WithObserver(observer)
	}
	app.Guards = guards

	idempotencyStore := idempotency.NewMemoryStore()
	app.IdempotencyStore = idempotencyStore
	app.resourceManager.RegisterFunc("idempotency-store", func() error {
		idempotencyStore.Stop()
		return nil
	})

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	httpserver.ConfigureRouter(app.router, cfg, app.Adapter, app.Guards, httpserver.NewRPCProxyHandlers(cfg), app.IdempotencyStore, metricsCollector, appLogger)

	return app, nil
}

// Router returns the chi router with gateway routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases resources owned by the app (chain adapter, replay store, etc).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// RegisterRoutes attaches gateway endpoints to the provided router using an existing App.
func RegisterRoutes(router chi.Router, app *App) {
	if router == nil || app == nil {
		return
	}

	appLogger := logger.New(logger.Config{
		Level:       app.Config.Logging.Level,
		Format:      app.Config.Logging.Format,
		Service:     "x402kit-gateway",
		Environment: app.Config.Logging.Environment,
	})

	collector := app.metricsCollector
	if collector == nil {
		collector = metrics.New(prometheus.DefaultRegisterer)
	}

	httpserver.ConfigureRouter(router, app.Config, app.Adapter, app.Guards, httpserver.NewRPCProxyHandlers(app.Config), app.IdempotencyStore, collector, appLogger)
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the gateway.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
