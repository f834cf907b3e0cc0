package auth

import "strconv"

// ResolveTenant picks exactly one membership for the request, or fails
// informatively. selector is the explicit tenant selector (header, query
// parameter, token binding or session binding), empty when absent.
//
// Priority order, first match wins:
//  1. explicit selector: the named tenant's membership or ErrNotAMember —
//     never a silent fallback to another tenant
//  2. exactly one active membership: auto-select
//  3. several active memberships: AmbiguousTenantError listing candidates
//  4. none: ErrNoTenantMembership
//
// Inactive memberships are treated as absent throughout, including on the
// explicit-selector path. A malformed selector is equivalent to naming a
// tenant the principal does not belong to.
func ResolveTenant(memberships []Membership, selector string) (*Membership, error) {
	active := make([]Membership, 0, len(memberships))
	for _, m := range memberships {
		if m.IsActive {
			active = append(active, m)
		}
	}

	if selector != "" {
		tenantID, err := strconv.ParseInt(selector, 10, 64)
		if err != nil {
			return nil, ErrNotAMember
		}
		for i := range active {
			if active[i].TenantID == tenantID {
				return &active[i], nil
			}
		}
		return nil, ErrNotAMember
	}

	switch len(active) {
	case 0:
		return nil, ErrNoTenantMembership
	case 1:
		return &active[0], nil
	}

	candidates := make([]TenantCandidate, 0, len(active))
	for _, m := range active {
		candidates = append(candidates, TenantCandidate{
			ID:   m.TenantID,
			Name: m.TenantName,
			Role: m.Role,
		})
	}
	return nil, &AmbiguousTenantError{Candidates: candidates}
}
