package auth

import (
	"errors"
	"testing"
)

func membershipFixtures() []Membership {
	return []Membership{
		{ID: 1, PrincipalID: 10, TenantID: 100, Role: RoleMember, IsActive: true, TenantName: "Acme Projects"},
		{ID: 2, PrincipalID: 10, TenantID: 200, Role: RoleAdmin, IsActive: true, TenantName: "Beacon Finance"},
		{ID: 3, PrincipalID: 10, TenantID: 300, Role: RoleViewer, IsActive: false, TenantName: "Cobalt (left)"},
	}
}

func TestResolveTenant_SingleActiveMembership(t *testing.T) {
	single := []Membership{
		{ID: 1, TenantID: 100, Role: RoleMember, IsActive: true, TenantName: "Acme Projects"},
	}

	m, err := ResolveTenant(single, "")
	if err != nil {
		t.Fatalf("ResolveTenant failed: %v", err)
	}
	if m.TenantID != 100 {
		t.Errorf("expected tenant 100, got %d", m.TenantID)
	}
	if m.Role != RoleMember {
		t.Errorf("expected role member, got %s", m.Role)
	}
}

func TestResolveTenant_ExplicitSelector(t *testing.T) {
	t.Run("selects named tenant", func(t *testing.T) {
		m, err := ResolveTenant(membershipFixtures(), "100")
		if err != nil {
			t.Fatalf("ResolveTenant failed: %v", err)
		}
		if m.TenantID != 100 || m.Role != RoleMember {
			t.Errorf("unexpected membership: tenant=%d role=%s", m.TenantID, m.Role)
		}
	})

	t.Run("non-member tenant fails, never falls back", func(t *testing.T) {
		_, err := ResolveTenant(membershipFixtures(), "999")
		if !errors.Is(err, ErrNotAMember) {
			t.Fatalf("expected ErrNotAMember, got %v", err)
		}
	})

	t.Run("inactive membership is not selectable", func(t *testing.T) {
		_, err := ResolveTenant(membershipFixtures(), "300")
		if !errors.Is(err, ErrNotAMember) {
			t.Fatalf("expected ErrNotAMember for inactive membership, got %v", err)
		}
	})

	t.Run("malformed selector treated as non-member", func(t *testing.T) {
		_, err := ResolveTenant(membershipFixtures(), "acme'; DROP TABLE tenants;--")
		if !errors.Is(err, ErrNotAMember) {
			t.Fatalf("expected ErrNotAMember for malformed selector, got %v", err)
		}
	})
}

func TestResolveTenant_Ambiguous(t *testing.T) {
	_, err := ResolveTenant(membershipFixtures(), "")

	amb, ok := IsAmbiguousTenant(err)
	if !ok {
		t.Fatalf("expected AmbiguousTenantError, got %v", err)
	}
	// Inactive membership must not appear as a candidate.
	if len(amb.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(amb.Candidates))
	}
	if amb.Candidates[0].ID != 100 || amb.Candidates[0].Role != RoleMember {
		t.Errorf("unexpected first candidate: %+v", amb.Candidates[0])
	}
	if amb.Candidates[1].ID != 200 || amb.Candidates[1].Role != RoleAdmin {
		t.Errorf("unexpected second candidate: %+v", amb.Candidates[1])
	}
	if amb.Candidates[1].Name != "Beacon Finance" {
		t.Errorf("candidate name not carried: %+v", amb.Candidates[1])
	}
}

func TestResolveTenant_NoMemberships(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		_, err := ResolveTenant(nil, "")
		if !errors.Is(err, ErrNoTenantMembership) {
			t.Fatalf("expected ErrNoTenantMembership, got %v", err)
		}
	})

	t.Run("only inactive membership", func(t *testing.T) {
		only := []Membership{{ID: 3, TenantID: 300, Role: RoleAdmin, IsActive: false}}
		_, err := ResolveTenant(only, "")
		if !errors.Is(err, ErrNoTenantMembership) {
			t.Fatalf("expected ErrNoTenantMembership, got %v", err)
		}
	})
}

func TestResolveTenant_Deterministic(t *testing.T) {
	// Same inputs resolve identically on repeat calls.
	for i := 0; i < 3; i++ {
		m, err := ResolveTenant(membershipFixtures(), "200")
		if err != nil {
			t.Fatalf("ResolveTenant failed on call %d: %v", i, err)
		}
		if m.TenantID != 200 || m.Role != RoleAdmin {
			t.Fatalf("resolution changed on call %d: %+v", i, m)
		}
	}
}
