package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/pkg/auth"
)

// Store implements session persistence using PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a session row for an issued token
func (s *Store) Create(ctx context.Context, session *auth.Session) error {
	query := `
		INSERT INTO sessions (token_hash, principal_id, tenant_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, last_activity_at, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		session.TokenHash, session.PrincipalID, session.TenantID, session.ExpiresAt,
	).Scan(&session.ID, &session.LastActivityAt, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByTokenHash looks up the session for a presented token together with
// the owning principal. Expired sessions and missing rows both come back as
// ErrNoSession; an inactive principal is reported separately so the caller
// can distinguish 401 from 403.
func (s *Store) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, *auth.Principal, error) {
	query := `
		SELECT s.id, s.token_hash, s.principal_id, s.tenant_id, s.expires_at,
		       s.last_activity_at, s.created_at,
		       p.id, p.email, p.full_name, p.system_role, p.is_active,
		       p.created_at, p.updated_at
		FROM sessions s
		JOIN principals p ON p.id = s.principal_id
		WHERE s.token_hash = $1
	`
	session := &auth.Session{}
	principal := &auth.Principal{}
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.ID, &session.TokenHash, &session.PrincipalID, &session.TenantID,
		&session.ExpiresAt, &session.LastActivityAt, &session.CreatedAt,
		&principal.ID, &principal.Email, &principal.FullName, &principal.SystemRole,
		&principal.IsActive, &principal.CreatedAt, &principal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, nil, auth.Unavailable("session lookup", err)
	}

	if session.Expired(time.Now()) {
		return nil, nil, auth.ErrNoSession
	}
	if !principal.IsActive {
		return nil, nil, auth.ErrPrincipalInactive
	}
	return session, principal, nil
}

// Touch records activity on a session and, when tenantID is non-nil, binds
// the resolved tenant for continuity. Concurrent touches are last-writer-wins.
func (s *Store) Touch(ctx context.Context, sessionID int64, tenantID *int64) error {
	var err error
	if tenantID != nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE sessions SET last_activity_at = NOW(), tenant_id = $2 WHERE id = $1",
			sessionID, *tenantID,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE sessions SET last_activity_at = NOW() WHERE id = $1",
			sessionID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// BindTenant rewrites the session's tenant binding, used by tenant switch
func (s *Store) BindTenant(ctx context.Context, sessionID, tenantID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET tenant_id = $2, last_activity_at = NOW() WHERE id = $1",
		sessionID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to bind tenant: %w", err)
	}
	return nil
}

// UpdateTokenHash swaps the token a session answers to, used when tenant
// switch issues a fresh token for the same session
func (s *Store) UpdateTokenHash(ctx context.Context, sessionID int64, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET token_hash = $2, expires_at = $3 WHERE id = $1",
		sessionID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update token hash: %w", err)
	}
	return nil
}

// Delete removes a session row, revoking the credential
func (s *Store) Delete(ctx context.Context, sessionID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry, returning the count
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return deleted, nil
}

// CountActive returns the number of live sessions
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE expires_at >= NOW()",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
