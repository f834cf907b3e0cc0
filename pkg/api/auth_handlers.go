package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/httputil"
	"github.com/ledgerline/ledgerline/pkg/observability"
	"github.com/ledgerline/ledgerline/pkg/principals"
	"github.com/ledgerline/ledgerline/pkg/sessions"
	"github.com/ledgerline/ledgerline/pkg/tenants"
)

// AuthHandlers handles login, logout, introspection, and tenant switching
type AuthHandlers struct {
	tokens     *auth.TokenService
	principals *principals.Store
	sessions   *sessions.Store
	tenants    *tenants.Store
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(deps Dependencies) *AuthHandlers {
	return &AuthHandlers{
		tokens:     deps.Tokens,
		principals: deps.Principals,
		sessions:   deps.Sessions,
		tenants:    deps.Tenants,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// RegisterRoutes registers the routes that do not require tenant resolution.
// The session-scoped ones validate the token and session themselves so they
// keep working while tenant choice is still ambiguous.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.HandleFunc("/auth/session", h.logout).Methods("DELETE")
	router.HandleFunc("/auth/tenants", h.listTenants).Methods("GET")
	router.HandleFunc("/auth/switch-tenant", h.switchTenant).Methods("POST")
}

// tokenResponse is the body returned whenever a token is issued
type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal *auth.Principal `json:"principal"`
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") || !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	principal, err := h.principals.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, principals.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "invalid email or password")
			return
		}
		h.logger.WithError(err).Error("login unavailable")
		httputil.WriteServiceUnavailable(w)
		return
	}

	token, expiresAt, err := h.tokens.Issue(*principal, nil)
	if err != nil {
		h.logger.WithError(err).Error("token issue failed")
		httputil.WriteServiceUnavailable(w)
		return
	}

	session := &auth.Session{
		TokenHash:   auth.HashToken(token),
		PrincipalID: principal.ID,
		ExpiresAt:   expiresAt,
	}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		h.logger.WithError(err).Error("session create failed")
		httputil.WriteServiceUnavailable(w)
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	}
	httputil.WriteSuccess(w, tokenResponse{Token: token, ExpiresAt: expiresAt, Principal: principal})
}

// authenticateSession validates the bearer token and its session without
// resolving a tenant. Failures are written to the response.
func (h *AuthHandlers) authenticateSession(w http.ResponseWriter, r *http.Request) (*auth.Session, *auth.Principal, bool) {
	raw := httputil.BearerToken(r)
	if raw == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, nil, false
	}
	if _, err := h.tokens.Verify(raw); err != nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return nil, nil, false
	}

	session, principal, err := h.sessions.GetByTokenHash(r.Context(), auth.HashToken(raw))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoSession):
			httputil.WriteUnauthorized(w, "session not found or expired")
		case errors.Is(err, auth.ErrPrincipalInactive):
			httputil.WriteForbidden(w, "account is deactivated")
		default:
			h.logger.WithError(err).Error("session lookup unavailable")
			httputil.WriteServiceUnavailable(w)
		}
		return nil, nil, false
	}
	return session, principal, true
}

// logout handles DELETE /auth/session
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.authenticateSession(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), session.ID); err != nil {
		h.logger.WithError(err).Error("session delete failed")
		httputil.WriteServiceUnavailable(w)
		return
	}
	httputil.WriteNoContent(w)
}

// membershipSummary is one entry in the caller's tenant list
type membershipSummary struct {
	TenantID   int64     `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	TenantSlug string    `json:"tenant_slug"`
	Role       auth.Role `json:"role"`
}

// listTenants handles GET /auth/tenants: the active memberships the caller
// can select, usable while tenant resolution is still ambiguous
func (h *AuthHandlers) listTenants(w http.ResponseWriter, r *http.Request) {
	_, principal, ok := h.authenticateSession(w, r)
	if !ok {
		return
	}

	memberships, err := h.tenants.ListMemberships(r.Context(), principal.ID)
	if err != nil {
		h.logger.WithError(err).Error("membership list unavailable")
		httputil.WriteServiceUnavailable(w)
		return
	}

	summaries := make([]membershipSummary, 0, len(memberships))
	for _, m := range memberships {
		if !m.IsActive {
			continue
		}
		summaries = append(summaries, membershipSummary{
			TenantID:   m.TenantID,
			TenantName: m.TenantName,
			TenantSlug: m.TenantSlug,
			Role:       m.Role,
		})
	}
	httputil.WriteSuccess(w, map[string]interface{}{"tenants": summaries})
}

// switchTenant handles POST /auth/switch-tenant: verifies the target
// membership, rebinds the session, and issues a fresh token carrying the
// tenant so subsequent requests resolve without ambiguity
func (h *AuthHandlers) switchTenant(w http.ResponseWriter, r *http.Request) {
	session, principal, ok := h.authenticateSession(w, r)
	if !ok {
		return
	}

	var req struct {
		TenantID int64 `json:"tenant_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.TenantID, "tenant_id") {
		return
	}

	membership, err := h.tenants.GetMembership(r.Context(), principal.ID, req.TenantID)
	if err != nil {
		if errors.Is(err, auth.ErrNotAMember) {
			httputil.WriteForbidden(w, "not a member of the requested organization")
			return
		}
		h.logger.WithError(err).Error("membership lookup unavailable")
		httputil.WriteServiceUnavailable(w)
		return
	}
	if !membership.IsActive {
		// Soft-removed membership is never selectable
		httputil.WriteForbidden(w, "not a member of the requested organization")
		return
	}

	token, expiresAt, err := h.tokens.Issue(*principal, &req.TenantID)
	if err != nil {
		h.logger.WithError(err).Error("token issue failed")
		httputil.WriteServiceUnavailable(w)
		return
	}

	// The session now answers to the new token only; the old one is dead
	if err := h.sessions.UpdateTokenHash(r.Context(), session.ID, auth.HashToken(token), expiresAt); err != nil {
		h.logger.WithError(err).Error("session rebind failed")
		httputil.WriteServiceUnavailable(w)
		return
	}
	if err := h.sessions.BindTenant(r.Context(), session.ID, req.TenantID); err != nil {
		h.logger.WithError(err).Error("tenant bind failed")
		httputil.WriteServiceUnavailable(w)
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues("tenant_switch").Inc()
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"token":             token,
		"expires_at":        expiresAt,
		"tenant_id":         membership.TenantID,
		"tenant_name":       membership.TenantName,
		"organization_role": membership.Role,
	})
}

// me handles GET /auth/me behind the full pipeline: the resolved context
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	sc, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, sc)
}
