// Package observability bundles the service's operational concerns:
// structured JSON logging, Prometheus metrics for the auth pipeline,
// liveness/readiness checks against Postgres and Redis, optional
// OpenTelemetry export, and graceful shutdown coordination.
package observability
