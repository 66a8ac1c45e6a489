// Package observability provides structured logging, Prometheus metrics, and health checks.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and graceful shutdown coordination.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
//	metrics.HTTPRequestDuration.WithLabelValues("GET", "/health").Observe(0.123)
//
// Business metrics:
//
//	metrics.OrganizationsTotal.Set(float64(count))
//	metrics.LiveRevocations.Set(float64(live))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
