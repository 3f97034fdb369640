// Package middleware provides per-client HTTP rate limiting.
//
// # Overview
//
// Each client, identified by the first X-Forwarded-For hop, X-Real-IP or the
// remote address, gets its own token bucket from golang.org/x/time/rate.
// Rejected requests receive 429 with {"error":"rate_limited"} and a
// Retry-After header, and increment the rate limit reject counter.
//
// # Usage
//
//	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
//		RequestsPerSecond: 50,
//		BurstSize:         100,
//	})
//	limiter.StartCleanup(ctx)
//	apiRouter.Use(middleware.NewRateLimitMiddleware(limiter, metrics).Handler)
//
// Buckets live in process memory; limits are per instance.
package middleware
