package authz

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/observability"
)

// Loader reads a role's permission grants for one tenant
type Loader struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewLoader creates a new Loader
func NewLoader(db *sql.DB, metrics *observability.Metrics) *Loader {
	return &Loader{db: db, metrics: metrics}
}

// LoadPermissions returns the permissions granted to a role within a tenant.
// No rows is not an error: the caller gets an empty set and every permission
// check fails closed. Unknown permission strings in storage are dropped.
func (l *Loader) LoadPermissions(ctx context.Context, tenantID int64, role auth.Role) ([]auth.Permission, error) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.PermissionLoadDuration.Observe(time.Since(start).Seconds())
		}
	}()

	rows, err := l.db.QueryContext(ctx,
		"SELECT permission FROM role_permissions WHERE tenant_id = $1 AND role = $2",
		tenantID, role,
	)
	if err != nil {
		return nil, auth.Unavailable("permission load", err)
	}
	defer rows.Close()

	permissions := make([]auth.Permission, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, auth.Unavailable("permission scan", err)
		}
		perm, err := auth.ParsePermission(raw)
		if err != nil {
			continue
		}
		permissions = append(permissions, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, auth.Unavailable("permission load", err)
	}
	return permissions, nil
}
