package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/authz"
	"github.com/ledgerline/ledgerline/pkg/observability"
	"github.com/ledgerline/ledgerline/pkg/principals"
	"github.com/ledgerline/ledgerline/pkg/sessions"
	"github.com/ledgerline/ledgerline/pkg/tenants"
)

type testServer struct {
	server *Server
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewTokenService([]byte("test-secret-test-secret-test-secret"), "ledgerline", time.Hour)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	server := NewServer(Dependencies{
		Tokens:      tokens,
		Principals:  principals.NewStore(db),
		Sessions:    sessions.NewStore(db),
		Tenants:     tenants.NewStore(db),
		Permissions: authz.NewLoader(db, nil),
		Logger:      logger,
	})
	return &testServer{server: server, mock: mock, tokens: tokens}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func testPrincipal() auth.Principal {
	return auth.Principal{
		ID:         5,
		Email:      "dana@example.com",
		FullName:   "Dana Reyes",
		SystemRole: auth.SystemUser,
		IsActive:   true,
	}
}

// expectSessionLookup queues the session-by-token-hash join for a token
func (ts *testServer) expectSessionLookup(t *testing.T, token string, tenantID *int64) {
	t.Helper()
	now := time.Now()
	var boundTenant interface{}
	if tenantID != nil {
		boundTenant = *tenantID
	}
	rows := sqlmock.NewRows([]string{
		"id", "token_hash", "principal_id", "tenant_id", "expires_at",
		"last_activity_at", "created_at",
		"p_id", "email", "full_name", "system_role", "is_active",
		"p_created_at", "p_updated_at",
	}).AddRow(
		1, auth.HashToken(token), 5, boundTenant, now.Add(time.Hour), now, now,
		5, "dana@example.com", "Dana Reyes", "user", true, now, now,
	)
	ts.mock.ExpectQuery("SELECT (.+) FROM sessions s").
		WithArgs(auth.HashToken(token)).
		WillReturnRows(rows)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	ts.mock.ExpectQuery("SELECT (.+) FROM principals").
		WithArgs("dana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "system_role", "is_active", "created_at", "updated_at",
		}).AddRow(5, "dana@example.com", "Dana Reyes", string(hash), "user", true, now, now))
	ts.mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), int64(5), nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_activity_at", "created_at"}).
			AddRow(1, now, now))

	req := httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"email":"dana@example.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token     string          `json:"token"`
		ExpiresAt time.Time       `json:"expires_at"`
		Principal *auth.Principal `json:"principal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	assert.Equal(t, int64(5), body.Principal.ID)

	claims, err := ts.tokens.Verify(body.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestLogin_BadPassword(t *testing.T) {
	ts := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	ts.mock.ExpectQuery("SELECT (.+) FROM principals").
		WithArgs("dana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "system_role", "is_active", "created_at", "updated_at",
		}).AddRow(5, "dana@example.com", "Dana Reyes", string(hash), "user", true, now, now))

	req := httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"email":"dana@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"dana@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	ts.expectSessionLookup(t, token, nil)
	ts.mock.ExpectExec("DELETE FROM sessions WHERE id =").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("DELETE", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestListTenants_FiltersInactive(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	ts.expectSessionLookup(t, token, nil)
	now := time.Now()
	ts.mock.ExpectQuery("SELECT (.+) FROM memberships m").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_id", "tenant_id", "role", "is_active", "name", "slug", "created_at",
		}).
			AddRow(1, 5, 7, "member", true, "Acme Corp", "acme", now).
			AddRow(2, 5, 9, "admin", false, "Beta LLC", "beta", now))

	req := httptest.NewRequest("GET", "/auth/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tenants []struct {
			TenantID int64  `json:"tenant_id"`
			Role     string `json:"role"`
		} `json:"tenants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tenants, 1)
	assert.Equal(t, int64(7), body.Tenants[0].TenantID)
}

func TestSwitchTenant(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	ts.expectSessionLookup(t, token, nil)
	now := time.Now()
	ts.mock.ExpectQuery("SELECT (.+) FROM memberships m").
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_id", "tenant_id", "role", "is_active", "name", "slug", "created_at",
		}).AddRow(2, 5, 9, "admin", true, "Beta LLC", "beta", now))
	ts.mock.ExpectExec("UPDATE sessions SET token_hash =").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectExec("UPDATE sessions SET tenant_id =").
		WithArgs(int64(1), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("POST", "/auth/switch-tenant", strings.NewReader(`{"tenant_id":9}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token            string `json:"token"`
		TenantID         int64  `json:"tenant_id"`
		OrganizationRole string `json:"organization_role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(9), body.TenantID)
	assert.Equal(t, "admin", body.OrganizationRole)

	// The fresh token carries the tenant binding
	claims, err := ts.tokens.Verify(body.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, int64(9), *claims.TenantID)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestSwitchTenant_NotAMember(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	ts.expectSessionLookup(t, token, nil)
	ts.mock.ExpectQuery("SELECT (.+) FROM memberships m").
		WithArgs(int64(5), int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_id", "tenant_id", "role", "is_active", "name", "slug", "created_at",
		}))

	req := httptest.NewRequest("POST", "/auth/switch-tenant", strings.NewReader(`{"tenant_id":404}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSwitchTenant_InactiveMembership(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	ts.expectSessionLookup(t, token, nil)
	now := time.Now()
	ts.mock.ExpectQuery("SELECT (.+) FROM memberships m").
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_id", "tenant_id", "role", "is_active", "name", "slug", "created_at",
		}).AddRow(2, 5, 9, "admin", false, "Beta LLC", "beta", now))

	req := httptest.NewRequest("POST", "/auth/switch-tenant", strings.NewReader(`{"tenant_id":9}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMe_FullPipeline(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue(testPrincipal(), nil)
	require.NoError(t, err)

	now := time.Now()
	// Pipeline order: session lookup, memberships, tenant record, permissions
	ts.expectSessionLookup(t, token, nil)
	ts.mock.ExpectQuery("SELECT (.+) FROM memberships m").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_id", "tenant_id", "role", "is_active", "name", "slug", "created_at",
		}).AddRow(1, 5, 7, "member", true, "Acme Corp", "acme", now))
	ts.mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id =").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "slug", "plan", "features", "max_users", "max_projects",
			"max_storage_bytes", "used_storage_bytes", "created_at", "updated_at",
		}).AddRow(7, "Acme Corp", "acme", "business", []byte(`["usage_reports"]`),
			100, 100, int64(500<<30), int64(0), now, now))
	ts.mock.ExpectQuery("SELECT permission FROM role_permissions").
		WithArgs(int64(7), "member").
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).
			AddRow("projects.view").
			AddRow("tasks.view"))
	ts.mock.ExpectExec("UPDATE sessions SET last_activity_at").
		WithArgs(int64(1), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	var sc auth.SecurityContext
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sc))
	assert.Equal(t, int64(7), sc.Tenant.ID)
	assert.Equal(t, auth.RoleMember, sc.TenantRole)
	assert.Len(t, sc.Permissions, 2)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}
