package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/httputil"
	"github.com/ledgerline/ledgerline/pkg/middleware"
	"github.com/ledgerline/ledgerline/pkg/observability"
	"github.com/ledgerline/ledgerline/pkg/tenants"
)

// TenantHandlers serves the resolved tenant's profile, member list, and
// usage counters. Every route sits behind a guard.
type TenantHandlers struct {
	tenants *tenants.Store
	cache   *tenants.Cache
	logger  *observability.Logger
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(deps Dependencies) *TenantHandlers {
	return &TenantHandlers{
		tenants: deps.Tenants,
		cache:   deps.TenantCache,
		logger:  deps.Logger,
	}
}

// RegisterRoutes mounts the guarded tenant routes on the authenticated
// subrouter
func (h *TenantHandlers) RegisterRoutes(router *mux.Router, guards *middleware.Guards) {
	router.Handle("/tenant",
		guards.RequirePermission(auth.PermTenantView)(http.HandlerFunc(h.getTenant))).Methods("GET")
	router.Handle("/tenant",
		guards.RequireRole(auth.RoleAdmin)(http.HandlerFunc(h.updateTenant))).Methods("PATCH")
	router.Handle("/tenant/members",
		guards.RequirePermission(auth.PermMembersView)(http.HandlerFunc(h.listMembers))).Methods("GET")
	router.Handle("/reports/usage",
		guards.RequireFeature(tenants.FeatureUsageReports)(http.HandlerFunc(h.usageReport))).Methods("GET")
}

// getTenant handles GET /tenant
func (h *TenantHandlers) getTenant(w http.ResponseWriter, r *http.Request) {
	sc, _ := auth.FromContext(r.Context())
	httputil.WriteSuccess(w, sc.Tenant)
}

// updateTenant handles PATCH /tenant: rename only; plan and feature changes
// go through billing, not this surface
func (h *TenantHandlers) updateTenant(w http.ResponseWriter, r *http.Request) {
	sc, _ := auth.FromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	tenant := sc.Tenant
	tenant.Name = req.Name

	if h.cache != nil {
		if err := h.cache.UpdateTenant(r.Context(), &tenant); err != nil {
			h.logger.WithError(err).Error("tenant update failed")
			httputil.WriteServiceUnavailable(w)
			return
		}
	} else {
		if err := h.tenants.UpdateTenant(r.Context(), &tenant); err != nil {
			h.logger.WithError(err).Error("tenant update failed")
			httputil.WriteServiceUnavailable(w)
			return
		}
	}

	httputil.WriteSuccess(w, tenant)
}

// listMembers handles GET /tenant/members
func (h *TenantHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	sc, _ := auth.FromContext(r.Context())

	members, err := h.tenants.ListMembers(r.Context(), sc.Tenant.ID)
	if err != nil {
		h.logger.WithError(err).Error("member list unavailable")
		httputil.WriteServiceUnavailable(w)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"members": members})
}

// usageReport handles GET /reports/usage: counters already tracked on the
// tenant row, plus the live member count
func (h *TenantHandlers) usageReport(w http.ResponseWriter, r *http.Request) {
	sc, _ := auth.FromContext(r.Context())

	memberCount, err := h.tenants.CountMembers(r.Context(), sc.Tenant.ID)
	if err != nil {
		h.logger.WithError(err).Error("member count unavailable")
		httputil.WriteServiceUnavailable(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"plan":               sc.Tenant.Plan,
		"members":            memberCount,
		"max_users":          sc.Tenant.Limits.MaxUsers,
		"max_projects":       sc.Tenant.Limits.MaxProjects,
		"max_storage_bytes":  sc.Tenant.Limits.MaxStorageBytes,
		"used_storage_bytes": sc.Tenant.Limits.UsedStorageBytes,
	})
}
