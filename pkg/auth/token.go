package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed claim set carried by a bearer token. Subject holds
// the principal id; TenantID is set only on tokens issued by a tenant
// switch, binding subsequent requests to that tenant without a selector.
type Claims struct {
	Email      string `json:"email"`
	SystemRole string `json:"role"`
	TenantID   *int64 `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalID parses the subject claim as the principal's numeric id.
func (c *Claims) PrincipalID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim %q: %w", c.Subject, err)
	}
	return id, nil
}

// TokenService signs and verifies bearer tokens with a pre-shared secret.
// Verification is strict HS256: any other algorithm in the header is
// rejected before the signature is checked.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
}

// NewTokenService creates a token service. ttl bounds token lifetime and
// matches the session lifetime created alongside each issued token.
func NewTokenService(secret []byte, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		leeway: 30 * time.Second,
	}
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration { return ts.ttl }

// Issue signs a token for the principal. tenantID, when non-nil, bakes a
// tenant binding into the claims (used by the tenant-switch operation).
// Returns the compact token and its expiry.
func (ts *TokenService) Issue(p Principal, tenantID *int64) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.ttl)

	claims := &Claims{
		Email:      p.Email,
		SystemRole: string(p.SystemRole),
		TenantID:   tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    ts.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature, expiry and issuer of a raw bearer string and
// returns the decoded claims. All failures collapse to ErrInvalidToken; the
// caller gets no hint whether the signature or the expiry was at fault.
func (ts *TokenService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithLeeway(ts.leeway),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken computes the SHA-256 hash of a raw token for session lookup.
// Sessions store only the hash, never the token itself.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
