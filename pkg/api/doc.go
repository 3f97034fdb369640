// Package api provides the HTTP API server for items.
//
// # Overview
//
// Server routes requests with gorilla/mux to a small set of handlers backed
// by a storage.ItemStore:
//
//	GET  /healthz     liveness, never touches the database
//	GET  /readyz      readiness, pings the database
//	GET  /metrics     Prometheus exposition (when metrics are configured)
//	GET  /api/time    {"now":"2025-01-01T00:00:00.000Z"}
//	GET  /api/items   up to 50 items in store order
//	POST /api/items   {"name":"widget"} -> 201 {"id":"<hex>"}
//
// Unknown paths answer 404 {"error":"not_found"} and known paths with the
// wrong method answer 405 {"error":"method_not_allowed"}. Store failures are
// logged with the request ID and answered with 500 {"error":"internal_error"}.
//
// # Usage
//
//	server := api.NewServer(store, logger,
//		api.WithMetrics(metrics),
//		api.WithAPIMiddleware(rateLimiter.Handler),
//	)
//	http.ListenAndServe(":3000", server)
//
// Store operations run on a context detached from the request's
// cancellation, so a client hanging up does not abort an insert midway.
package api
