// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/trimslot/trimslot/pkg/contextkeys"
//   ctx = contextkeys.WithPrincipal(ctx, p)
//   p, ok := ctx.Value(contextkeys.PrincipalKey).(*identity.Principal)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *identity.Principal
	// Set by: authz.Middleware after the request binding layer authenticates
	// Required by: All gate-protected endpoints
	// Type: *identity.Principal
	PrincipalKey Key = "principal"

	// TenantKey contains tenant.Context (the resolved effective tenant)
	// Set by: authz.Middleware on Allow
	// Required by: Tenant-scoped handlers and stores
	// Type: tenant.Context
	TenantKey Key = "tenant_context"

	// CapabilitiesKey contains identity.CapabilitySet returned on Allow
	// Set by: authz.Middleware on Allow
	// Used by: Handlers that branch on fine-grained capabilities
	// Type: identity.CapabilitySet
	CapabilitiesKey Key = "capabilities"

	// FingerprintKey contains the SHA256 fingerprint of the presented credential
	// Set by: authz.Authenticator after token verification
	// Used by: authz.Gate revocation check, logout handler
	// Type: string
	FingerprintKey Key = "credential_fingerprint"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, tracing of deny decisions
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithTenant adds the resolved tenant context to the context
func WithTenant(ctx context.Context, tenant interface{}) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}

// WithCapabilities adds the effective capability set to the context
func WithCapabilities(ctx context.Context, caps interface{}) context.Context {
	return context.WithValue(ctx, CapabilitiesKey, caps)
}

// WithFingerprint adds the credential fingerprint to the context
func WithFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, FingerprintKey, fingerprint)
}

// GetFingerprint retrieves the credential fingerprint from context
func GetFingerprint(ctx context.Context) string {
	if fingerprint, ok := ctx.Value(FingerprintKey).(string); ok {
		return fingerprint
	}
	return ""
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
