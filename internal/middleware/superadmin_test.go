package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func runKeyed(key, header string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/superadmin/institutions", nil)
	if header != "" {
		req.Header.Set("X-Platform-Key", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = RequireKey(key)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	return rec
}

func TestRequireKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, runKeyed("s3cret", "s3cret").Code)
	assert.Equal(t, http.StatusForbidden, runKeyed("s3cret", "wrong").Code)
	assert.Equal(t, http.StatusForbidden, runKeyed("s3cret", "").Code)
	// An empty configured key disables the surface entirely.
	assert.Equal(t, http.StatusForbidden, runKeyed("", "").Code)
}
