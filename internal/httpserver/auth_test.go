package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentora/authcore/internal/authz"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/middleware"
	"github.com/rentora/authcore/internal/models"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/service"
	"github.com/rentora/authcore/internal/tokens"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open in-memory db")

	err = gdb.AutoMigrate(
		&models.Role{},
		&models.AuthUser{},
		&models.RefreshToken{},
		&models.Session{},
		&models.UserProfile{},
		&models.AuditEntry{},
	)
	require.NoError(t, err, "failed to migrate tables")

	for _, name := range []string{models.RoleTenant, models.RoleStaff, models.RoleAdmin} {
		require.NoError(t, gdb.Create(&models.Role{Name: name}).Error)
	}

	r := repo.New(gdb)
	issuer := &tokens.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	svc := &service.AuthService{Repo: r, Issuer: issuer}
	cookieOpts := tokens.CookieOptions{
		Name:     "refreshToken",
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
	engine := authz.New(r)

	e := echo.New()
	Register(e, &Deps{
		Auth:     &AuthHTTP{Svc: svc, Cookie: cookieOpts},
		Profiles: &ProfileHTTP{Repo: r, Authz: engine},
		Audit:    &AuditHTTP{Repo: r, Authz: engine},
		AuthMW:   middleware.NewAuth(issuer, r),
		Logger:   logging.New("error"),
	})
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "test-agent")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "refreshToken" {
			return cookie
		}
	}
	t.Fatal("no refresh cookie set")
	return nil
}

func withCookie(cookie *http.Cookie) func(*http.Request) {
	return func(req *http.Request) { req.AddCookie(cookie) }
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
}

func registerAndLogin(t *testing.T, e *echo.Echo, email, password, role string) (accessToken string, cookie *http.Cookie) {
	t.Helper()

	rec := doJSON(t, e, http.MethodPost, "/auth/register",
		map[string]string{"email": email, "password": password, "role": role})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	accessToken, _ = body["access_token"].(string)
	require.NotEmpty(t, accessToken)
	return accessToken, refreshCookie(t, rec)
}

func TestAuthFlow_RegisterLoginSessionLogout(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)

	// register
	rec := doJSON(t, e, http.MethodPost, "/auth/register",
		map[string]string{"email": "a@b.com", "password": "pw123", "role": "tenant"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotZero(t, decodeBody(t, rec)["id"])

	// duplicate email
	rec = doJSON(t, e, http.MethodPost, "/auth/register",
		map[string]string{"email": "a@b.com", "password": "pw123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// login
	rec = doJSON(t, e, http.MethodPost, "/auth/login",
		map[string]string{"email": "a@b.com", "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	cookie := refreshCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	// session info via refresh cookie
	rec = doJSON(t, e, http.MethodGet, "/auth/session", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, "tenant", user["role"])

	// refresh mints a new access token
	rec = doJSON(t, e, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["access_token"])

	// logout revokes both sides and clears the cookie
	rec = doJSON(t, e, http.MethodPost, "/auth/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["revoked"])
	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)

	// the revoked cookie is dead for session info and refresh alike
	rec = doJSON(t, e, http.MethodGet, "/auth/session", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_NoEnumerationSignal(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/auth/register",
		map[string]string{"email": "a@b.com", "password": "pw123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPw := doJSON(t, e, http.MethodPost, "/auth/login",
		map[string]string{"email": "a@b.com", "password": "nope"})
	unknown := doJSON(t, e, http.MethodPost, "/auth/login",
		map[string]string{"email": "ghost@b.com", "password": "pw123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestRegister_InvalidRole(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/auth/register",
		map[string]string{"email": "a@b.com", "password": "pw123", "role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid role")
}

func TestRefresh_MissingCookie(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_MissingCookie(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe_RequiresBearer(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	accessToken, _ := registerAndLogin(t, e, "a@b.com", "pw123", "staff")
	rec = doJSON(t, e, http.MethodGet, "/auth/me", nil, withBearer(accessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a@b.com", body["email"])
	assert.Equal(t, "staff", body["role"])
}

func TestDelete_TwoPaths(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	adminToken, _ := registerAndLogin(t, e, "root@b.com", "pw123", "admin")
	tenantToken, _ := registerAndLogin(t, e, "t@b.com", "pw123", "tenant")

	// tenant cannot delete someone else via token
	rec := doJSON(t, e, http.MethodDelete, "/auth/delete",
		map[string]string{"email": "root@b.com"}, withBearer(tenantToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// credential path needs the password
	rec = doJSON(t, e, http.MethodDelete, "/auth/delete",
		map[string]string{"email": "t@b.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// admin token path succeeds
	rec = doJSON(t, e, http.MethodDelete, "/auth/delete",
		map[string]string{"email": "t@b.com"}, withBearer(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	// target is gone
	rec = doJSON(t, e, http.MethodDelete, "/auth/delete",
		map[string]string{"email": "t@b.com", "password": "pw123"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfiles_OwnershipRules(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	tenantToken, _ := registerAndLogin(t, e, "t@b.com", "pw123", "tenant")
	otherToken, _ := registerAndLogin(t, e, "o@b.com", "pw123", "tenant")

	// find the tenant's id through /auth/me
	rec := doJSON(t, e, http.MethodGet, "/auth/me", nil, withBearer(tenantToken))
	require.Equal(t, http.StatusOK, rec.Code)
	tenantID := uint(decodeBody(t, rec)["id"].(float64))

	// creating a profile for someone else is forbidden
	rec = doJSON(t, e, http.MethodPost, "/api/user_profiles",
		map[string]any{"user_id": tenantID + 1000, "full_name": "X"}, withBearer(tenantToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// registration created profile 1 for the first user; its owner updates it
	rec = doJSON(t, e, http.MethodPut, "/api/user_profiles/1",
		map[string]string{"phone": "555-0100"}, withBearer(tenantToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	// non-owner may not update it
	rec = doJSON(t, e, http.MethodPut, "/api/user_profiles/1",
		map[string]string{"phone": "555-0199"}, withBearer(otherToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// owner reads it back
	rec = doJSON(t, e, http.MethodGet, "/api/user_profiles/1", nil, withBearer(tenantToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "555-0100")
}

func TestAuditLog_AdminOnly(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	adminToken, _ := registerAndLogin(t, e, "root@b.com", "pw123", "admin")
	tenantToken, _ := registerAndLogin(t, e, "t@b.com", "pw123", "tenant")

	rec := doJSON(t, e, http.MethodGet, "/api/audit_log", nil, withBearer(tenantToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/audit_log", nil, withBearer(adminToken))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	// registrations above were audited
	assert.GreaterOrEqual(t, body["total"].(float64), float64(2))

	// pagination is strictly validated
	rec = doJSON(t, e, http.MethodGet, "/api/audit_log?page=0", nil, withBearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, e, http.MethodGet, "/api/audit_log?per_page=1000", nil, withBearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// search endpoint reports itself unavailable without an index
	rec = doJSON(t, e, http.MethodGet, "/api/audit_log/search?q=register", nil, withBearer(adminToken))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/audit_log/search?q=register", nil, withBearer(tenantToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedAPI_RequiresAccessToken(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/api/audit_log", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/user_profiles",
		map[string]any{"user_id": 1, "full_name": "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, e, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
