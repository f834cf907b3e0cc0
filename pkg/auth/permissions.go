package auth

import (
	"fmt"
	"strings"
)

// Permission is a named capability granted to a role within a tenant.
// Permission strings follow "<area>.<verb>" and must come from the registry
// below; unknown strings are rejected when policy is loaded so a typo can
// never silently pass (or fail) an authorization check.
type Permission string

const (
	PermProjectsView  Permission = "projects.view"
	PermProjectsEdit  Permission = "projects.edit"
	PermTasksView     Permission = "tasks.view"
	PermTasksEdit     Permission = "tasks.edit"
	PermInvoicesView  Permission = "invoices.view"
	PermInvoicesEdit  Permission = "invoices.edit"
	PermExpensesView  Permission = "expenses.view"
	PermExpensesEdit  Permission = "expenses.edit"
	PermBudgetsView   Permission = "budgets.view"
	PermBudgetsEdit   Permission = "budgets.edit"
	PermFilesView     Permission = "files.view"
	PermFilesManage   Permission = "files.manage"
	PermTenantView    Permission = "tenant.view"
	PermTenantEdit    Permission = "tenant.edit"
	PermMembersView   Permission = "members.view"
	PermMembersManage Permission = "members.manage"
	PermReportsView   Permission = "reports.view"
)

// RegisteredPermissions returns every permission the system understands.
func RegisteredPermissions() []Permission {
	return []Permission{
		PermProjectsView, PermProjectsEdit,
		PermTasksView, PermTasksEdit,
		PermInvoicesView, PermInvoicesEdit,
		PermExpensesView, PermExpensesEdit,
		PermBudgetsView, PermBudgetsEdit,
		PermFilesView, PermFilesManage,
		PermTenantView, PermTenantEdit,
		PermMembersView, PermMembersManage,
		PermReportsView,
	}
}

var registry = func() map[Permission]struct{} {
	m := make(map[Permission]struct{})
	for _, p := range RegisteredPermissions() {
		m[p] = struct{}{}
	}
	return m
}()

// Valid reports whether the permission is in the registry.
func (p Permission) Valid() bool {
	_, ok := registry[p]
	return ok
}

// Area returns the "<area>" half of the permission string.
func (p Permission) Area() string {
	if i := strings.IndexByte(string(p), '.'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// ParsePermission validates a permission string against the registry.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}
