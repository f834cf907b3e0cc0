// Package principals persists principal accounts and owns credential
// verification for login.
package principals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/pkg/auth"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The same
// error covers unknown email and wrong password so responses cannot be used
// to probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Store implements principal persistence using PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Authenticate verifies an email/password pair and returns the principal.
// Inactive accounts authenticate like unknown ones.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*auth.Principal, error) {
	query := `
		SELECT id, email, full_name, password_hash, system_role, is_active, created_at, updated_at
		FROM principals
		WHERE email = $1
	`
	principal := &auth.Principal{}
	var passwordHash string
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&principal.ID, &principal.Email, &principal.FullName, &passwordHash,
		&principal.SystemRole, &principal.IsActive, &principal.CreatedAt, &principal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Burn a bcrypt comparison so timing does not reveal account existence
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, auth.Unavailable("principal lookup", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !principal.IsActive {
		return nil, ErrInvalidCredentials
	}
	return principal, nil
}

// GetByID retrieves a principal by ID
func (s *Store) GetByID(ctx context.Context, id int64) (*auth.Principal, error) {
	query := `
		SELECT id, email, full_name, system_role, is_active, created_at, updated_at
		FROM principals
		WHERE id = $1
	`
	principal := &auth.Principal{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&principal.ID, &principal.Email, &principal.FullName,
		&principal.SystemRole, &principal.IsActive, &principal.CreatedAt, &principal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("principal %d not found", id)
	}
	if err != nil {
		return nil, auth.Unavailable("principal lookup", err)
	}
	return principal, nil
}

// Create inserts a principal with a bcrypt-hashed password
func (s *Store) Create(ctx context.Context, principal *auth.Principal, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if principal.SystemRole == "" {
		principal.SystemRole = auth.SystemUser
	}
	principal.IsActive = true

	query := `
		INSERT INTO principals (email, full_name, password_hash, system_role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		principal.Email, principal.FullName, string(hash), principal.SystemRole, principal.IsActive,
	).Scan(&principal.ID, &principal.CreatedAt, &principal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}
	return nil
}
