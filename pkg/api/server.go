package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/authz"
	"github.com/ledgerline/ledgerline/pkg/httputil"
	"github.com/ledgerline/ledgerline/pkg/middleware"
	"github.com/ledgerline/ledgerline/pkg/observability"
	"github.com/ledgerline/ledgerline/pkg/principals"
	"github.com/ledgerline/ledgerline/pkg/sessions"
	"github.com/ledgerline/ledgerline/pkg/tenants"
)

// Dependencies bundles everything the API surface needs. All collaborators
// are constructed by the caller and injected.
type Dependencies struct {
	Tokens      *auth.TokenService
	Principals  *principals.Store
	Sessions    *sessions.Store
	Tenants     *tenants.Store
	TenantCache *tenants.Cache
	Permissions *authz.Loader
	Logger      *observability.Logger
	Metrics     *observability.Metrics

	MaxBodyBytes int64
}

// Server owns the router and the handler groups mounted on it
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer builds the router with the shared middleware chain and all
// routes registered
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: deps.Logger,
	}

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBody),
	)
	s.router.Use(chain)
	if deps.Metrics != nil {
		s.router.Use(deps.Metrics.HTTPMiddleware)
	}

	// tenantGetter prefers the cache when one is wired
	var tenantGetter middleware.TenantGetter = deps.Tenants
	if deps.TenantCache != nil {
		tenantGetter = deps.TenantCache
	}

	authenticator := middleware.NewAuthenticator(
		deps.Tokens, deps.Sessions, deps.Tenants, tenantGetter, deps.Permissions,
		deps.Logger, deps.Metrics,
	)
	guards := middleware.NewGuards(deps.Metrics)

	authHandlers := NewAuthHandlers(deps)
	authHandlers.RegisterRoutes(s.router)

	// Everything below runs behind the full resolution pipeline
	authed := s.router.NewRoute().Subrouter()
	authed.Use(authenticator.Middleware)

	authed.HandleFunc("/auth/me", authHandlers.me).Methods("GET")

	tenantHandlers := NewTenantHandlers(deps)
	tenantHandlers.RegisterRoutes(authed, guards)

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
