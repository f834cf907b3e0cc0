package auth

import (
	"context"

	"github.com/ledgerline/ledgerline/pkg/contextkeys"
)

// NewContext returns a context carrying the resolved security context
func NewContext(ctx context.Context, sc *SecurityContext) context.Context {
	return contextkeys.WithSecurityContext(ctx, sc)
}

// FromContext retrieves the security context set by the authentication
// middleware. The second return is false on routes outside the pipeline.
func FromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(contextkeys.SecurityContextKey).(*SecurityContext)
	return sc, ok
}
