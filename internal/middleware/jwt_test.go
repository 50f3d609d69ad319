package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-id/internal/model"
	"github.com/iliyamo/campus-id/internal/utils"
)

const testSecret = "access-secret"

func issueAccess(t *testing.T, claims utils.SessionClaims, ttl time.Duration) string {
	t.Helper()
	pair, err := utils.NewSessionPair(testSecret, "refresh-secret", claims, ttl, ttl)
	require.NoError(t, err)
	return pair.AccessToken
}

// run sends a request through the given middlewares into a handler
// that records the claim context and returns 200.
func run(auth string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	_ = h(c)
	return rec, c
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	t.Parallel()

	tok := issueAccess(t, utils.SessionClaims{
		AccountID: 42, Role: "student", InstitutionID: 7, Email: "ada@mit.edu",
	}, time.Hour)

	rec, c := run("Bearer "+tok, JWTAuth(testSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), c.Get(CtxAccountID))
	assert.Equal(t, "student", c.Get(CtxRole))
	assert.Equal(t, uint64(7), c.Get(CtxInstitutionID))
	assert.Equal(t, "ada@mit.edu", c.Get(CtxEmail))
}

func TestJWTAuthRejects(t *testing.T) {
	t.Parallel()

	expired := issueAccess(t, utils.SessionClaims{AccountID: 1}, -time.Minute)

	cases := map[string]string{
		"missing header": "",
		"no bearer":      "Basic abc",
		"garbage":        "Bearer not.a.jwt",
		"expired":        "Bearer " + expired,
	}
	for name, auth := range cases {
		rec, _ := run(auth, JWTAuth(testSecret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	student := issueAccess(t, utils.SessionClaims{AccountID: 1, Role: "student"}, time.Hour)
	admin := issueAccess(t, utils.SessionClaims{AccountID: 2, Role: "admin"}, time.Hour)

	rec, _ := run("Bearer "+admin, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = run("Bearer "+student, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = run("Bearer "+student, JWTAuth(testSecret),
		RequireRole(model.RoleStudent, model.RoleLecturer, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	t.Parallel()

	rec, _ := run("", RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
