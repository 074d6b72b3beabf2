// Package server provides the HTTP host for persistkit applications using
// Gin with HTTP/2 cleartext (h2c) support.
//
// The server follows the component pattern: Start binds the listener and
// Stop drains in-flight requests, so registering it after the persistence
// component guarantees requests finish before the factory is torn down.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - Tracing: one span per request
//   - RequestMetrics: request counters and latency histograms
//   - RequestLogger: request logging with duration
//   - PersistenceHandle: one persistence handle per request, always closed
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /healthz: liveness check
//   - /readyz: readiness check backed by component health
//   - /health: component health aggregation
//   - /version: build version information
package server
