// Package auth defines the core identity model for the Ledgerline backend:
// principals, tenants, memberships, sessions, signed bearer tokens and the
// request-scoped SecurityContext every tenant-scoped handler consumes.
//
// The package is deliberately free of I/O. Persistence lives in pkg/sessions
// and pkg/tenants, permission loading in pkg/authz, and the HTTP pipeline in
// pkg/middleware. The one algorithm owned here is tenant resolution
// (resolver.go), which picks exactly one tenant context from a principal's
// memberships or fails with enough detail for the client to self-correct.
package auth
