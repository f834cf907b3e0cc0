package middleware

import (
	"net/http"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/httputil"
	"github.com/ledgerline/ledgerline/pkg/observability"
)

// Guards adapts the SecurityContext predicates into route middleware.
// Each guard assumes the Authenticator already ran; a missing context is
// a wiring bug answered with 401, never a panic.
type Guards struct {
	metrics *observability.Metrics
}

// NewGuards creates guard middleware constructors
func NewGuards(metrics *observability.Metrics) *Guards {
	return &Guards{metrics: metrics}
}

func (g *Guards) deny(kind string) {
	if g.metrics != nil {
		g.metrics.GuardDenialsTotal.WithLabelValues(kind).Inc()
	}
}

func securityContext(w http.ResponseWriter, r *http.Request) (*auth.SecurityContext, bool) {
	sc, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return sc, true
}

// RequirePermission gates a route on a named permission
func (g *Guards) RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := securityContext(w, r)
			if !ok {
				return
			}
			if !sc.HasPermission(perm) {
				g.deny("permission")
				httputil.WritePermissionDenied(w, perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on the caller's tenant role being in the set
func (g *Guards) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := securityContext(w, r)
			if !ok {
				return
			}
			if !sc.RoleIn(roles...) {
				g.deny("role")
				httputil.WriteRoleDenied(w, roles, sc.TenantRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature gates a route on the resolved tenant's plan features
func (g *Guards) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := securityContext(w, r)
			if !ok {
				return
			}
			if !sc.HasFeature(feature) {
				g.deny("feature")
				httputil.WriteFeatureDenied(w, feature)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
