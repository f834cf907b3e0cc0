// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/ledgerline/ledgerline/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.SecurityContextKey, sc)
//   sc := ctx.Value(contextkeys.SecurityContextKey).(*auth.SecurityContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SecurityContextKey contains *auth.SecurityContext
	// Set by: middleware.Authenticator (pkg/middleware/auth.go) after the
	// full resolution pipeline succeeds
	// Required by: guard middlewares, all tenant-scoped handlers
	// Type: *auth.SecurityContext
	SecurityContextKey Key = "security_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, response headers
	// Type: string
	RequestIDKey Key = "request_id"

	// PrincipalIDKey contains the authenticated principal's ID string
	// Set by: middleware.Authenticator
	// Used by: Logger
	// Type: string
	PrincipalIDKey Key = "principal_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: handlers that log with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithSecurityContext adds the resolved security context to the context
func WithSecurityContext(ctx context.Context, sc interface{}) context.Context {
	return context.WithValue(ctx, SecurityContextKey, sc)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithPrincipalID adds the principal ID to the context
func WithPrincipalID(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, PrincipalIDKey, principalID)
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

// GetPrincipalID retrieves the principal ID from context
func GetPrincipalID(ctx context.Context) string {
	if principalID, ok := ctx.Value(PrincipalIDKey).(string); ok {
		return principalID
	}
	return ""
}
