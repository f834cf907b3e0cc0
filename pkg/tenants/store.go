package tenants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerline/ledgerline/pkg/auth"
)

// ErrTenantNotFound is returned when no tenant matches the lookup key.
var ErrTenantNotFound = errors.New("tenant not found")

// Store implements tenant and membership persistence using PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const tenantColumns = `id, name, slug, plan, features, max_users, max_projects,
       max_storage_bytes, used_storage_bytes, created_at, updated_at`

func scanTenant(row *sql.Row) (*auth.Tenant, error) {
	tenant := &auth.Tenant{}
	var featuresJSON []byte
	err := row.Scan(
		&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Plan, &featuresJSON,
		&tenant.Limits.MaxUsers, &tenant.Limits.MaxProjects,
		&tenant.Limits.MaxStorageBytes, &tenant.Limits.UsedStorageBytes,
		&tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if err := json.Unmarshal(featuresJSON, &tenant.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	// Plan-derived features apply when the row carries no override
	if len(tenant.Features) == 0 {
		tenant.Features = DefaultFeatures(tenant.Plan)
	}
	return tenant, nil
}

// GetTenant retrieves a tenant by ID
func (s *Store) GetTenant(ctx context.Context, id int64) (*auth.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.db.QueryRowContext(ctx, query, id))
}

// GetTenantBySlug retrieves a tenant by slug
func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*auth.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

// CreateTenant creates a tenant with plan-derived limits when none are set
func (s *Store) CreateTenant(ctx context.Context, tenant *auth.Tenant) error {
	if tenant.Plan == "" {
		tenant.Plan = auth.PlanFree
	}
	if tenant.Limits == (auth.TenantLimits{}) {
		tenant.Limits = DefaultLimits(tenant.Plan)
	}

	featuresJSON, err := json.Marshal(tenant.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		INSERT INTO tenants (name, slug, plan, features, max_users, max_projects, max_storage_bytes, used_storage_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		tenant.Name, tenant.Slug, tenant.Plan, featuresJSON,
		tenant.Limits.MaxUsers, tenant.Limits.MaxProjects,
		tenant.Limits.MaxStorageBytes, tenant.Limits.UsedStorageBytes,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// UpdateTenant updates a tenant's mutable profile fields
func (s *Store) UpdateTenant(ctx context.Context, tenant *auth.Tenant) error {
	featuresJSON, err := json.Marshal(tenant.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		UPDATE tenants
		SET name = $2, plan = $3, features = $4, max_users = $5, max_projects = $6,
		    max_storage_bytes = $7, used_storage_bytes = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		tenant.ID, tenant.Name, tenant.Plan, featuresJSON,
		tenant.Limits.MaxUsers, tenant.Limits.MaxProjects,
		tenant.Limits.MaxStorageBytes, tenant.Limits.UsedStorageBytes,
	).Scan(&tenant.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrTenantNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// ListMemberships lists a principal's memberships joined with tenant
// identity, active and inactive alike. Resolution filters on IsActive.
func (s *Store) ListMemberships(ctx context.Context, principalID int64) ([]auth.Membership, error) {
	query := `
		SELECT m.id, m.principal_id, m.tenant_id, m.role, m.is_active,
		       t.name, t.slug, m.created_at
		FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.principal_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []auth.Membership
	for rows.Next() {
		var m auth.Membership
		if err := rows.Scan(
			&m.ID, &m.PrincipalID, &m.TenantID, &m.Role, &m.IsActive,
			&m.TenantName, &m.TenantSlug, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

// GetMembership retrieves one principal's membership in one tenant
func (s *Store) GetMembership(ctx context.Context, principalID, tenantID int64) (*auth.Membership, error) {
	query := `
		SELECT m.id, m.principal_id, m.tenant_id, m.role, m.is_active,
		       t.name, t.slug, m.created_at
		FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.principal_id = $1 AND m.tenant_id = $2
	`
	var m auth.Membership
	err := s.db.QueryRowContext(ctx, query, principalID, tenantID).Scan(
		&m.ID, &m.PrincipalID, &m.TenantID, &m.Role, &m.IsActive,
		&m.TenantName, &m.TenantSlug, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, auth.ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// AddMembership inserts a membership row
func (s *Store) AddMembership(ctx context.Context, m *auth.Membership) error {
	query := `
		INSERT INTO memberships (principal_id, tenant_id, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, m.PrincipalID, m.TenantID, m.Role, m.IsActive).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", err)
	}
	return nil
}

// CountMembers returns the number of active members in a tenant
func (s *Store) CountMembers(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memberships WHERE tenant_id = $1 AND is_active = true",
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// ListMembers lists the principals belonging to a tenant
func (s *Store) ListMembers(ctx context.Context, tenantID int64) ([]auth.Member, error) {
	query := `
		SELECT p.id, p.email, p.full_name, m.role, m.is_active, m.created_at
		FROM memberships m
		JOIN principals p ON p.id = m.principal_id
		WHERE m.tenant_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []auth.Member
	for rows.Next() {
		var m auth.Member
		if err := rows.Scan(&m.PrincipalID, &m.Email, &m.FullName, &m.Role, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
