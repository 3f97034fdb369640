// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helpers for JSON encoding/decoding, error responses
// with stable error codes, and the middleware that hardens every response.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, items)
//	httputil.WriteCreated(w, map[string]string{"id": id})
//
// Error responses carry a single machine readable code:
//
//	httputil.WriteBadRequest(w, httputil.ErrCodeInvalidName) // {"error":"invalid_name"}
//	httputil.WriteInternalError(w)                          // {"error":"internal_error"}
//
// # Request Parsing
//
//	var body map[string]interface{}
//	if !httputil.ParseJSONOrError(w, r, &body) {
//		return // 400 invalid_json or 413 payload_too_large already written
//	}
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.SecurityHeadersMiddleware,
//		httputil.CORSMiddleware("*"),
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware(nil),
//		httputil.MaxBytesMiddleware(100*1024),
//	)(router)
//
// The first middleware is the outermost, so headers set by the security and
// CORS middleware are present on every response, including 404s and
// recovered panics.
//
// # Related Packages
//
//   - pkg/middleware: per-client rate limiting
package httputil
