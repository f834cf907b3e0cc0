// Package middleware wires the authentication pipeline into the HTTP layer:
// bearer token verification, session validation, tenant resolution,
// permission loading, and the guard adapters handlers compose per route.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/contextkeys"
	"github.com/ledgerline/ledgerline/pkg/httputil"
	"github.com/ledgerline/ledgerline/pkg/observability"
)

// TenantHeader and TenantQueryParam carry the explicit tenant selector.
const (
	TenantHeader     = "X-Tenant-ID"
	TenantQueryParam = "tenant_id"
)

// SessionStore validates presented tokens against live sessions.
type SessionStore interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, *auth.Principal, error)
	Touch(ctx context.Context, sessionID int64, tenantID *int64) error
}

// MembershipLister loads a principal's tenant memberships.
type MembershipLister interface {
	ListMemberships(ctx context.Context, principalID int64) ([]auth.Membership, error)
}

// TenantGetter fetches a tenant record, possibly through a cache.
type TenantGetter interface {
	GetTenant(ctx context.Context, id int64) (*auth.Tenant, error)
}

// PermissionLoader fetches the grants for a role within a tenant.
type PermissionLoader interface {
	LoadPermissions(ctx context.Context, tenantID int64, role auth.Role) ([]auth.Permission, error)
}

// Authenticator runs the full resolution pipeline for every request behind
// it and injects an immutable SecurityContext on success. All collaborators
// are injected so tests can substitute doubles.
type Authenticator struct {
	tokens      *auth.TokenService
	sessions    SessionStore
	memberships MembershipLister
	tenants     TenantGetter
	permissions PermissionLoader
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewAuthenticator creates the authentication middleware
func NewAuthenticator(
	tokens *auth.TokenService,
	sessions SessionStore,
	memberships MembershipLister,
	tenants TenantGetter,
	permissions PermissionLoader,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		sessions:    sessions,
		memberships: memberships,
		tenants:     tenants,
		permissions: permissions,
		logger:      logger,
		metrics:     metrics,
	}
}

// Middleware authenticates the request and resolves its tenant context.
// Requests that fail any stage are answered here and never reach the
// wrapped handler.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := observability.FromContext(ctx)
		if a.logger != nil {
			log = a.logger.WithField("request_id", contextkeys.GetRequestID(ctx))
		}

		raw := httputil.BearerToken(r)
		if raw == "" {
			a.outcome("no_token")
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		claims, err := a.tokens.Verify(raw)
		if err != nil {
			a.outcome("invalid_token")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		session, principal, err := a.sessions.GetByTokenHash(ctx, auth.HashToken(raw))
		if err != nil {
			a.failSession(w, log, err)
			return
		}

		memberships, err := a.memberships.ListMemberships(ctx, principal.ID)
		if err != nil {
			a.unavailable(w, log, err)
			return
		}

		membership, err := auth.ResolveTenant(memberships, tenantSelector(r, claims, session))
		if err != nil {
			a.failResolution(w, log, err)
			return
		}

		tenant, err := a.tenants.GetTenant(ctx, membership.TenantID)
		if err != nil {
			a.unavailable(w, log, err)
			return
		}

		permissions, err := a.permissions.LoadPermissions(ctx, tenant.ID, membership.Role)
		if err != nil {
			a.unavailable(w, log, err)
			return
		}

		sc := &auth.SecurityContext{
			Principal:   *principal,
			Tenant:      *tenant,
			TenantRole:  membership.Role,
			Permissions: permissions,
		}
		ctx = auth.NewContext(ctx, sc)
		ctx = contextkeys.WithPrincipalID(ctx, strconv.FormatInt(principal.ID, 10))

		// Record activity and bind the resolved tenant for the next request.
		// Best effort; the request already holds its context.
		tenantID := tenant.ID
		if err := a.sessions.Touch(ctx, session.ID, &tenantID); err != nil {
			log.WithError(err).Warn("failed to touch session")
		}

		a.outcome("ok")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantSelector picks the explicit tenant selector for this request. The
// request's own inputs win over the token binding, which wins over the
// binding remembered on the session.
func tenantSelector(r *http.Request, claims *auth.Claims, session *auth.Session) string {
	if v := r.Header.Get(TenantHeader); v != "" {
		return v
	}
	if v := r.URL.Query().Get(TenantQueryParam); v != "" {
		return v
	}
	if claims.TenantID != nil {
		return strconv.FormatInt(*claims.TenantID, 10)
	}
	if session.TenantID != nil {
		return strconv.FormatInt(*session.TenantID, 10)
	}
	return ""
}

func (a *Authenticator) failSession(w http.ResponseWriter, log *observability.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		a.outcome("no_session")
		httputil.WriteUnauthorized(w, "session not found or expired")
	case errors.Is(err, auth.ErrPrincipalInactive):
		a.outcome("principal_inactive")
		httputil.WriteForbidden(w, "account is deactivated")
	default:
		a.unavailable(w, log, err)
	}
}

func (a *Authenticator) failResolution(w http.ResponseWriter, log *observability.Logger, err error) {
	if ambiguous, ok := auth.IsAmbiguousTenant(err); ok {
		a.outcome("ambiguous")
		a.resolutionFailure("ambiguous")
		httputil.WriteAmbiguousTenant(w, ambiguous.Candidates)
		return
	}
	switch {
	case errors.Is(err, auth.ErrNotAMember):
		a.outcome("not_a_member")
		a.resolutionFailure("not_a_member")
		httputil.WriteForbidden(w, "not a member of the requested organization")
	case errors.Is(err, auth.ErrNoTenantMembership):
		a.outcome("no_membership")
		a.resolutionFailure("no_membership")
		httputil.WriteForbidden(w, "no organization membership")
	default:
		a.unavailable(w, log, err)
	}
}

// unavailable answers 503 with a generic body; the cause is only logged.
// A datastore failure must never read as an authentication failure.
func (a *Authenticator) unavailable(w http.ResponseWriter, log *observability.Logger, err error) {
	a.outcome("unavailable")
	log.WithError(err).Error("authentication pipeline unavailable")
	httputil.WriteServiceUnavailable(w)
}

func (a *Authenticator) outcome(name string) {
	if a.metrics != nil {
		a.metrics.AuthRequestsTotal.WithLabelValues(name).Inc()
	}
}

func (a *Authenticator) resolutionFailure(reason string) {
	if a.metrics != nil {
		a.metrics.TenantResolutionFailures.WithLabelValues(reason).Inc()
	}
}
