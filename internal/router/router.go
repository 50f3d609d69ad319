package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/handler"
	"github.com/iliyamo/campus-id/internal/middleware"
	"github.com/iliyamo/campus-id/internal/model"
)

// RegisterRoutes registers routes that do not require
// authentication on the provided Echo instance. Currently it
// exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the credential endpoints. Unauthenticated
// operations live under /v1/auth; protected endpoints live under
// /v1. The limiter middleware fronts the guessable endpoints
// (login, OTP verification, forgot-password).
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.GET("/institutions", a.ListInstitutions)
	g.POST("/admin/register", a.RegisterAdmin)
	g.POST("/login", a.Login, limiter)
	g.POST("/refresh", a.Refresh)
	g.GET("/verify-email", a.VerifyEmail)
	g.POST("/verify-otp", a.VerifyOTP, limiter)
	g.POST("/resend-otp", a.ResendVerification, limiter)
	g.POST("/forgot-password", a.ForgotPassword, limiter)
	g.POST("/reset-password", a.ResetPassword, limiter)

	// Protected endpoints for any authenticated account.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleStudent, model.RoleLecturer, model.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.PUT("/profile", a.UpdateProfile)
	auth.PUT("/avatar", a.UpdateAvatar)
	auth.PUT("/change-password", a.ChangePassword)
}

// RegisterAdmin registers the provisioning endpoints, restricted to
// admin accounts of an institution.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))
	g.POST("/students", h.CreateStudent)
	g.GET("/students", h.ListStudents)
	g.POST("/lecturers", h.CreateLecturer)
	g.GET("/lecturers", h.ListLecturers)
	g.PATCH("/accounts/:id/status", h.UpdateAccountStatus)
}

// RegisterSuperadmin registers the institution management surface,
// guarded by the static platform key.
func RegisterSuperadmin(e *echo.Echo, h *handler.SuperadminHandler, platformKey string) {
	g := e.Group("/v1/superadmin")
	g.Use(middleware.RequireKey(platformKey))
	g.POST("/institutions", h.CreateInstitution)
	g.GET("/institutions", h.ListInstitutions)
	g.PATCH("/institutions/:code/status", h.UpdateInstitutionStatus)
}
