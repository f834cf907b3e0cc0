package authz

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ledgerline/ledgerline/pkg/auth"
)

// RolePolicy maps tenant roles to their default permission grants. New
// tenants are seeded from it; existing grants are never overwritten.
type RolePolicy map[auth.Role][]auth.Permission

// DefaultPolicy returns the built-in role policy used when no policy file
// is configured
func DefaultPolicy() RolePolicy {
	return RolePolicy{
		auth.RoleAdmin: auth.RegisteredPermissions(),
		auth.RoleLead: {
			auth.PermProjectsView, auth.PermProjectsEdit,
			auth.PermTasksView, auth.PermTasksEdit,
			auth.PermInvoicesView,
			auth.PermExpensesView, auth.PermExpensesEdit,
			auth.PermBudgetsView, auth.PermBudgetsEdit,
			auth.PermFilesView, auth.PermFilesManage,
			auth.PermTenantView,
			auth.PermMembersView,
			auth.PermReportsView,
		},
		auth.RoleMember: {
			auth.PermProjectsView,
			auth.PermTasksView, auth.PermTasksEdit,
			auth.PermExpensesView, auth.PermExpensesEdit,
			auth.PermFilesView,
			auth.PermTenantView,
			auth.PermMembersView,
		},
		auth.RoleViewer: {
			auth.PermProjectsView,
			auth.PermTasksView,
			auth.PermInvoicesView,
			auth.PermExpensesView,
			auth.PermBudgetsView,
			auth.PermFilesView,
			auth.PermTenantView,
			auth.PermMembersView,
			auth.PermReportsView,
		},
	}
}

// policyFile is the YAML shape of a role policy file
type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPolicyFile reads a role policy from a YAML file. Every role and
// permission must come from the registries; unknown names are an error so
// a typo cannot silently widen or narrow a role.
func LoadPolicyFile(path string) (RolePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses YAML role policy content
func ParsePolicy(data []byte) (RolePolicy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	policy := make(RolePolicy, len(file.Roles))
	for roleName, permNames := range file.Roles {
		role, ok := auth.ParseRole(roleName)
		if !ok {
			return nil, fmt.Errorf("policy: unknown role %q", roleName)
		}
		perms := make([]auth.Permission, 0, len(permNames))
		for _, name := range permNames {
			perm, err := auth.ParsePermission(name)
			if err != nil {
				return nil, fmt.Errorf("policy role %s: %w", roleName, err)
			}
			perms = append(perms, perm)
		}
		policy[role] = perms
	}
	return policy, nil
}

// SeedTenant inserts the policy's grants for a tenant, leaving any existing
// rows untouched
func (p RolePolicy) SeedTenant(ctx context.Context, db *sql.DB, tenantID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start seed transaction: %w", err)
	}
	defer tx.Rollback()

	for role, perms := range p {
		for _, perm := range perms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permissions (tenant_id, role, permission)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (tenant_id, role, permission) DO NOTHING`,
				tenantID, role, perm,
			); err != nil {
				return fmt.Errorf("failed to seed %s/%s: %w", role, perm, err)
			}
		}
	}

	return tx.Commit()
}
