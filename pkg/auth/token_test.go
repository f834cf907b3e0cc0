package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokenService() *TokenService {
	return NewTokenService([]byte("test-secret-0123456789"), "ledgerline", time.Hour)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	ts := newTestTokenService()
	principal := Principal{ID: 42, Email: "pat@example.com", SystemRole: SystemUser, IsActive: true}

	token, expiresAt, err := ts.Issue(principal, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 55*time.Minute {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	id, err := claims.PrincipalID()
	if err != nil {
		t.Fatalf("PrincipalID failed: %v", err)
	}
	if id != 42 {
		t.Errorf("expected principal 42, got %d", id)
	}
	if claims.Email != "pat@example.com" {
		t.Errorf("unexpected email claim %q", claims.Email)
	}
	if claims.TenantID != nil {
		t.Errorf("expected no tenant binding, got %v", *claims.TenantID)
	}
}

func TestTokenService_TenantBinding(t *testing.T) {
	ts := newTestTokenService()
	tenantID := int64(7)

	token, _, err := ts.Issue(Principal{ID: 1, Email: "a@example.com"}, &tenantID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.TenantID == nil || *claims.TenantID != 7 {
		t.Errorf("expected tenant binding 7, got %v", claims.TenantID)
	}
}

func TestTokenService_VerifyFailures(t *testing.T) {
	ts := newTestTokenService()
	token, _, err := ts.Issue(Principal{ID: 1, Email: "a@example.com"}, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService([]byte("a-different-secret"), "ledgerline", time.Hour)
		if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenService([]byte("test-secret-0123456789"), "someone-else", time.Hour)
		if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + ".eyJzdWIiOiI5OTkifQ." + parts[2]
		if _, err := ts.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewTokenService([]byte("test-secret-0123456789"), "ledgerline", -2*time.Minute)
		expired, _, err := shortLived.Issue(Principal{ID: 1, Email: "a@example.com"}, nil)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := shortLived.Verify(expired); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		if _, err := ts.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("token-a")
	h2 := HashToken("token-a")
	h3 := HashToken("token-b")

	if h1 != h2 {
		t.Error("hash not deterministic")
	}
	if h1 == h3 {
		t.Error("distinct tokens hashed equal")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}
