// Package observability provides structured logging, Prometheus metrics,
// health probes, graceful shutdown and optional OpenTelemetry export.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 3000).Info("Server started")
//
// Request-scoped logging:
//
//	observability.FromContext(r.Context()).WithError(err).Error("list items failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Handle("/metrics", metrics.Handler())
//
// NewMetrics always registers the runtime collector, which exports heap used,
// heap total, external memory and uptime gauges read at scrape time.
//
// # Health Probes
//
//	checker := observability.NewHealthChecker(store, logger)
//	router.HandleFunc("/healthz", checker.Liveness)
//	router.HandleFunc("/readyz", checker.Readiness)
//
// Liveness never touches dependencies. Readiness pings the database.
//
// # Graceful Shutdown
//
//	sm := observability.NewShutdownManager(logger, httpServer, 10*time.Second)
//	sm.RegisterShutdownFunc("store", store.Close)
//	err := sm.WaitForShutdown(ctx)
//
// The server drains first, then registered functions run in order. Errors are
// logged and joined; every function runs regardless.
package observability
