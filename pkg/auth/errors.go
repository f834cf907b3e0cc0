package auth

import (
	"errors"
	"fmt"
)

// Sentinel failures produced by the resolution pipeline. Each maps to exactly
// one HTTP status in pkg/middleware; handlers never see them.
var (
	// ErrInvalidToken covers a missing, malformed, badly signed or expired
	// bearer token. Maps to 401.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrNoSession means the token verified but no live session matches it.
	// Maps to 401, indistinguishable from ErrInvalidToken on the wire.
	ErrNoSession = errors.New("session not found or expired")

	// ErrPrincipalInactive means the account is disabled. Maps to 403 so
	// clients can tell "wrong credentials" from "account suspended".
	ErrPrincipalInactive = errors.New("account is disabled")

	// ErrNotAMember means an explicit tenant selector named a tenant the
	// principal does not belong to. Maps to 403; never falls back to
	// another tenant.
	ErrNotAMember = errors.New("not a member of the requested tenant")

	// ErrNoTenantMembership means the principal belongs to no active
	// tenant. Maps to 403.
	ErrNoTenantMembership = errors.New("no tenant membership")
)

// TenantCandidate describes one selectable tenant in an ambiguity response.
type TenantCandidate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// AmbiguousTenantError is returned when a principal holds several active
// memberships and no explicit selector was supplied. It carries the full
// candidate list so the caller can re-request with a selector. Maps to 400.
type AmbiguousTenantError struct {
	Candidates []TenantCandidate
}

func (e *AmbiguousTenantError) Error() string {
	return fmt.Sprintf("tenant selection required: %d candidates", len(e.Candidates))
}

// IsAmbiguousTenant checks if an error is an ambiguous tenant error.
func IsAmbiguousTenant(err error) (*AmbiguousTenantError, bool) {
	var amb *AmbiguousTenantError
	if errors.As(err, &amb) {
		return amb, true
	}
	return nil, false
}

// UnavailableError wraps a datastore failure so the pipeline can distinguish
// "dependency down" from "denied". Maps to 503 with a generic body; the
// wrapped detail is logged server-side only.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an UnavailableError, annotated with the failing
// operation.
func Unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

// IsUnavailable checks if an error is a dependency failure.
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}
