package auth

import "time"

// SystemRole is a principal's role at the system level, independent of any
// tenant. It is carried in the token but never consulted by tenant-scoped
// authorization, which uses the membership Role instead.
type SystemRole string

const (
	SystemAdmin SystemRole = "admin"
	SystemUser  SystemRole = "user"
)

// Role is an in-tenant role. Roles form a closed set; anything outside it is
// rejected at parse time rather than silently failing permission checks.
type Role string

const (
	RoleAdmin  Role = "admin"  // Full access to the tenant
	RoleLead   Role = "lead"   // Manages projects and budgets
	RoleMember Role = "member" // Day-to-day contributor
	RoleViewer Role = "viewer" // Read-only access
)

// ValidRoles lists every recognized in-tenant role.
func ValidRoles() []Role {
	return []Role{RoleAdmin, RoleLead, RoleMember, RoleViewer}
}

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, bool) {
	for _, r := range ValidRoles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// PlanTier represents subscription plan tiers
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStandard   PlanTier = "standard"
	PlanBusiness   PlanTier = "business"
	PlanEnterprise PlanTier = "enterprise"
)

// Principal represents an authenticated human or service account
type Principal struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name,omitempty"`
	SystemRole SystemRole `json:"system_role"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Membership joins a principal to a tenant with an in-tenant role. At most
// one membership exists per (principal, tenant) pair. The tenant name and
// slug are denormalized from the membership view so ambiguity responses can
// name the candidates without a second lookup.
type Membership struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	TenantID    int64     `json:"tenant_id"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	TenantName  string    `json:"tenant_name,omitempty"`
	TenantSlug  string    `json:"tenant_slug,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a tenant-side view of a membership: the principal's identity
// joined with their in-tenant role.
type Member struct {
	PrincipalID int64     `json:"principal_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	JoinedAt    time.Time `json:"joined_at"`
}

// TenantLimits holds per-tenant resource ceilings and current consumption.
type TenantLimits struct {
	MaxUsers         int   `json:"max_users"`
	MaxProjects      int   `json:"max_projects"`
	MaxStorageBytes  int64 `json:"max_storage_bytes"`
	UsedStorageBytes int64 `json:"used_storage_bytes"`
}

// Tenant is an isolated organization namespace. Every resource the business
// modules touch is scoped by exactly one tenant id.
type Tenant struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Plan      PlanTier     `json:"plan"`
	Features  []string     `json:"features"`
	Limits    TenantLimits `json:"limits"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// HasFeature reports whether the tenant's plan includes a named feature.
func (t *Tenant) HasFeature(feature string) bool {
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Session is a live credential binding. A request authenticates only if a
// session row exists for the presented token hash with expiry in the future.
// TenantID records the last resolved tenant for continuity across requests
// reusing the same token; it is advisory and last-writer-wins.
type Session struct {
	ID             int64     `json:"id"`
	TokenHash      string    `json:"-"`
	PrincipalID    int64     `json:"principal_id"`
	TenantID       *int64    `json:"tenant_id,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SecurityContext is the request-scoped bundle of resolved identity, tenant
// and permissions. It is assembled once per request after tenant resolution
// succeeds and must not be mutated afterwards.
type SecurityContext struct {
	Principal   Principal    `json:"principal"`
	Tenant      Tenant       `json:"tenant"`
	TenantRole  Role         `json:"tenant_role"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission reports whether the named permission was granted to the
// caller's role within the resolved tenant.
func (sc *SecurityContext) HasPermission(p Permission) bool {
	for _, granted := range sc.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// RoleIn reports whether the caller's in-tenant role is one of the allowed
// set.
func (sc *SecurityContext) RoleIn(allowed ...Role) bool {
	for _, r := range allowed {
		if sc.TenantRole == r {
			return true
		}
	}
	return false
}

// HasFeature reports whether the resolved tenant's plan includes a feature.
func (sc *SecurityContext) HasFeature(feature string) bool {
	return sc.Tenant.HasFeature(feature)
}
