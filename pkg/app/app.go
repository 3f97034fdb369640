package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/platinummonkey/itemsapi/pkg/api"
	"github.com/platinummonkey/itemsapi/pkg/config"
	"github.com/platinummonkey/itemsapi/pkg/httputil"
	"github.com/platinummonkey/itemsapi/pkg/middleware"
	"github.com/platinummonkey/itemsapi/pkg/observability"
	"github.com/platinummonkey/itemsapi/pkg/storage"
	"github.com/platinummonkey/itemsapi/pkg/storage/mongo"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

// ErrInterrupted reports that ctx was cancelled while New was still
// starting up, for example by SIGTERM during the database connect.
var ErrInterrupted = errors.New("startup interrupted")

// StoreOpener connects the item store
type StoreOpener func(ctx context.Context, cfg storage.Config) (storage.ItemStore, error)

// Option configures an App
type Option func(*options)

type options struct {
	openStore StoreOpener
}

// WithStoreOpener replaces the MongoDB store opener
func WithStoreOpener(open StoreOpener) Option {
	return func(o *options) { o.openStore = open }
}

func openMongo(ctx context.Context, cfg storage.Config) (storage.ItemStore, error) {
	store, err := mongo.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// App owns the process-wide resources: the store connection, telemetry
// providers and the HTTP server. It is built by New, served by Run or
// Serve, and torn down exactly once on shutdown.
type App struct {
	cfg      *config.Config
	logger   *observability.Logger
	store    storage.ItemStore
	metrics  *observability.Metrics
	otel     *observability.OTelProviders
	limiter  *middleware.RateLimiter
	handler  http.Handler
	server   *http.Server
	shutdown *observability.ShutdownManager
}

// New performs ordered startup: telemetry, then the database connection,
// then the HTTP handler chain. A database that cannot be reached within the
// server selection timeout is reported as an error; nothing is retried.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts ...Option) (*App, error) {
	o := &options{openStore: openMongo}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{cfg: cfg, logger: logger}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.otel = providers

	if cfg.Observability.MetricsEnabled {
		a.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	logger.WithFields(map[string]interface{}{
		"collection":               cfg.Storage.MongoCollection,
		"server_selection_timeout": cfg.Storage.ServerSelectionTimeout.String(),
	}).Info("Connecting to MongoDB")

	store, err := o.openStore(ctx, cfg.Storage)
	if err != nil {
		if shutdownErr := observability.ShutdownOTel(context.Background(), providers, logger); shutdownErr != nil {
			logger.WithError(shutdownErr).Warn("OpenTelemetry shutdown failed")
		}
		if ctx.Err() != nil {
			logger.WithError(err).Info("Shutdown requested while connecting to MongoDB")
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Connected to MongoDB")
	a.store = storage.NewInstrumentedStore(store, a.metrics, mongo.Backend)

	a.handler = a.buildHandler()
	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	a.shutdown = observability.NewShutdownManager(logger, a.server, cfg.Server.ShutdownTimeout)
	a.shutdown.RegisterShutdownFunc("mongodb", a.store.Close)
	if a.otel != nil {
		a.shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, a.otel, logger)
		})
	}

	return a, nil
}

// buildHandler assembles the router and the middleware chain. The first
// middleware is the outermost.
func (a *App) buildHandler() http.Handler {
	var apiOpts []api.Option
	if a.metrics != nil {
		apiOpts = append(apiOpts, api.WithMetrics(a.metrics))
	}
	if a.cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimit.RPS,
			BurstSize:         a.cfg.RateLimit.Burst,
			TrustProxyHeaders: a.cfg.RateLimit.TrustProxy,
		})
		apiOpts = append(apiOpts, api.WithAPIMiddleware(middleware.NewRateLimitMiddleware(a.limiter, a.metrics).Handler))
	}

	server := api.NewServer(a.store, a.logger, apiOpts...)

	var onPanic func()
	chain := []func(http.Handler) http.Handler{
		httputil.SecurityHeadersMiddleware,
		httputil.CORSMiddleware(a.cfg.HTTP.CORSOrigin),
		httputil.RequestIDMiddleware(a.logger),
		httputil.LoggingMiddleware,
	}
	if a.metrics != nil {
		onPanic = a.metrics.PanicRecoveriesTotal.Inc
		chain = append(chain, observability.HTTPMetricsMiddleware(a.metrics, server.RouteLabel))
	}
	chain = append(chain,
		httputil.RecoveryMiddleware(onPanic),
		httputil.MaxBytesMiddleware(a.cfg.HTTP.MaxBodyBytes),
	)

	handler := httputil.Chain(chain...)(server)

	if a.otel != nil {
		handler = otelhttp.NewHandler(handler, a.cfg.Observability.OTelServiceName,
			otelhttp.WithTracerProvider(a.otel.TracerProvider),
			otelhttp.WithMeterProvider(a.otel.MeterProvider),
		)
	}
	return handler
}

// Handler returns the fully wrapped HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run binds the configured address and serves until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests and releases the store. Release failures are
// logged and do not make Serve fail.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.limiter != nil {
		a.limiter.StartCleanup(observability.WithLogger(gctx, a.logger))
	}

	g.Go(func() error {
		a.logger.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.shutdown.WaitForShutdown(gctx); err != nil {
			a.logger.WithError(err).Warn("Shutdown completed with errors")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// Close runs the shutdown sequence without waiting for a signal. It is
// safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}
