package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireKey guards the superadmin surface with a static platform
// key supplied in the X-Platform-Key header. An empty configured
// key disables the surface entirely.
func RequireKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "superadmin surface disabled"})
			}
			got := c.Request().Header.Get("X-Platform-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
