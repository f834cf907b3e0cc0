// Package api exposes the HTTP surface: login and session management,
// identity introspection, tenant switching, and the guarded tenant profile
// routes. Everything under the authenticated subtree runs behind the full
// resolution pipeline; the session-scoped auth routes validate the token
// and session but deliberately skip tenant resolution so a caller stuck on
// an ambiguous-tenant response can still list, switch, and log out.
package api
