package authz

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ledgerline/ledgerline/pkg/auth"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE role_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			permission TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, role, permission)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

func grant(t *testing.T, db *sql.DB, tenantID int64, role, permission string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO role_permissions (tenant_id, role, permission) VALUES ($1, $2, $3)",
		tenantID, role, permission,
	)
	if err != nil {
		t.Fatalf("Failed to insert grant: %v", err)
	}
}

func TestLoadPermissions(t *testing.T) {
	db := setupTestDB(t)
	grant(t, db, 7, "member", "tasks.view")
	grant(t, db, 7, "member", "tasks.edit")
	grant(t, db, 7, "admin", "tenant.edit")
	grant(t, db, 9, "member", "invoices.view")

	loader := NewLoader(db, nil)
	perms, err := loader.LoadPermissions(context.Background(), 7, auth.RoleMember)
	if err != nil {
		t.Fatalf("LoadPermissions failed: %v", err)
	}

	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d: %v", len(perms), perms)
	}
	set := make(map[auth.Permission]bool)
	for _, p := range perms {
		set[p] = true
	}
	if !set[auth.PermTasksView] || !set[auth.PermTasksEdit] {
		t.Errorf("missing expected grants in %v", perms)
	}
	if set[auth.PermTenantEdit] {
		t.Error("admin grant leaked into member role")
	}
	if set[auth.PermInvoicesView] {
		t.Error("grant from another tenant leaked in")
	}
}

func TestLoadPermissions_NoRowsIsEmptyNotError(t *testing.T) {
	db := setupTestDB(t)

	loader := NewLoader(db, nil)
	perms, err := loader.LoadPermissions(context.Background(), 7, auth.RoleViewer)
	if err != nil {
		t.Fatalf("LoadPermissions failed: %v", err)
	}
	if perms == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(perms) != 0 {
		t.Fatalf("expected no permissions, got %v", perms)
	}
}

func TestLoadPermissions_DropsUnregisteredStrings(t *testing.T) {
	db := setupTestDB(t)
	grant(t, db, 7, "member", "tasks.view")
	grant(t, db, 7, "member", "not.a.permission")

	loader := NewLoader(db, nil)
	perms, err := loader.LoadPermissions(context.Background(), 7, auth.RoleMember)
	if err != nil {
		t.Fatalf("LoadPermissions failed: %v", err)
	}
	if len(perms) != 1 || perms[0] != auth.PermTasksView {
		t.Fatalf("expected only tasks.view, got %v", perms)
	}
}

func TestLoadPermissions_ClosedDBIsUnavailable(t *testing.T) {
	db := setupTestDB(t)
	db.Close()

	loader := NewLoader(db, nil)
	_, err := loader.LoadPermissions(context.Background(), 7, auth.RoleMember)
	if err == nil {
		t.Fatal("expected error from closed database")
	}
	if !auth.IsUnavailable(err) {
		t.Errorf("datastore failure should be Unavailable, got %v", err)
	}
}
