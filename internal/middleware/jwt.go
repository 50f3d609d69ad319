package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxAccountID     = "account_id"
	CtxRole          = "role"
	CtxInstitutionID = "institution_id"
	CtxEmail         = "email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the decoded claims into the request context.
// The provided secret must match the one used when issuing access
// tokens. Any signature, expiry or shape problem yields the same
// 401 body; the reason is not surfaced.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.VerifyAccess(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxAccountID, claims.AccountID)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxInstitutionID, claims.InstitutionID)
			c.Set(CtxEmail, claims.Email)
			return next(c)
		}
	}
}
