package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/middleware"
	"github.com/iliyamo/campus-id/internal/model"
	"github.com/iliyamo/campus-id/internal/repository"
	"github.com/iliyamo/campus-id/internal/service"
	"github.com/iliyamo/campus-id/internal/utils"
)

// AuthHandler bundles dependencies for the credential endpoints.
type AuthHandler struct {
	Identity     *service.Identity
	Institutions *repository.InstitutionRepo
}

func NewAuthHandler(identity *service.Identity, institutions *repository.InstitutionRepo) *AuthHandler {
	return &AuthHandler{Identity: identity, Institutions: institutions}
}

// ----- DTOs -----

type registerAdminReq struct {
	InstitutionCode string `json:"institution_code"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginReq struct {
	Identifier string `json:"identifier"` // email, or student/lecturer ID
	Password   string `json:"password"`
	Role       string `json:"role"` // student | lecturer | admin
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyOTPReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type forgotPasswordReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type resetPasswordReq struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type accountPart struct {
	ID              uint64 `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar,omitempty"`
	StudentID       string `json:"student_id,omitempty"`
	LecturerID      string `json:"lecturer_id,omitempty"`
	InstitutionID   uint64 `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	IsFirstLogin    bool   `json:"is_first_login"`
}

type sessionResp struct {
	User    accountPart       `json:"user"`
	Session utils.SessionPair `json:"session"`
}

func toAccountPart(res service.LoginResult) accountPart {
	a := res.Account
	return accountPart{
		ID:              a.ID,
		Email:           a.Email,
		Role:            string(a.Role),
		Name:            strings.TrimSpace(a.Profile.FirstName + " " + a.Profile.LastName),
		Avatar:          a.Profile.Avatar,
		StudentID:       a.Profile.StudentID,
		LecturerID:      a.Profile.LecturerID,
		InstitutionID:   a.InstitutionID,
		InstitutionName: res.InstitutionName,
		IsFirstLogin:    a.IsFirstLogin,
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// ----- endpoints -----

// ListInstitutions lists active institutions for the signup dropdown.
func (h *AuthHandler) ListInstitutions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Institutions.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch institutions"})
	}
	type instPart struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Code string `json:"code"`
	}
	out := make([]instPart, 0, len(list))
	for _, inst := range list {
		out = append(out, instPart{ID: inst.ID, Name: inst.Name, Code: inst.Code})
	}
	return c.JSON(http.StatusOK, echo.Map{"institutions": out})
}

// RegisterAdmin creates a pending admin account at an existing
// active institution and mails a verification OTP.
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req registerAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.InstitutionCode == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "all fields are required"})
	}
	if req.Password != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords don't match", "field": "confirm_password"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Identity.RegisterAdmin(ctx, service.RegisterAdminInput{
		InstitutionCode: req.InstitutionCode,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "password"})
	case errors.Is(err, service.ErrInstitutionUnavailable):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institution not found or inactive"})
	case errors.Is(err, service.ErrAdminLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "institution has reached the maximum number of admins"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Admin account created. Check your email for the verification code.",
		"admin_id": acc.ID,
		"email":    acc.Email,
	})
}

// Login authenticates an identifier and password for a role and
// returns a session pair. Unknown identifier and wrong password
// produce the identical response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be student, lecturer or admin"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Identity.Login(ctx, req.Identifier, req.Password, role)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrEmailNotVerified):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":                 "email not verified",
			"requires_verification": true,
		})
	case errors.Is(err, service.ErrAccountNotActive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is not active"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, sessionResp{User: toAccountPart(res), Session: res.Session})
}

// Refresh exchanges a refresh token for a new session pair minted
// from the account's current role and institution.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Identity.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	switch {
	case err == nil:
	case errors.Is(err, utils.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	return c.JSON(http.StatusOK, sessionResp{User: toAccountPart(res), Session: res.Session})
}

// VerifyEmail consumes a magic-link token from the activation mail
// (GET /v1/auth/verify-email?token=...&email=...).
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	email := c.QueryParam("email")
	if token == "" || email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing token or email"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.VerifyEmail(ctx, email, token)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCodeInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid or expired verification link",
			"message": "This link may have expired or already been used. Please contact your administrator.",
		})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified. Your account is now active."})
}

// VerifyOTP consumes a 6-digit verification code (admin flow).
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || len(req.Code) != service.OTPLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and 6-digit code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.VerifyEmail(ctx, req.Email, req.Code)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCodeInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired OTP code"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully"})
}

// ResendVerification issues a fresh verification code, superseding
// any outstanding one.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.ResendVerification(ctx, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send code"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Verification code sent"})
}

// ForgotPassword requests a reset OTP. The response is the same
// generic message whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and role required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Identity.ForgotPassword(ctx, req.Email, role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process request"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "If an account exists with this email, you will receive a password reset code.",
	})
}

// ResetPassword consumes a reset OTP and installs a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, code and new_password required"})
	}
	if req.NewPassword != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords don't match", "field": "confirm_password"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.ResetPassword(ctx, req.Email, req.Code, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "new_password"})
	case errors.Is(err, service.ErrCodeInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired reset code"})
	case errors.Is(err, service.ErrSamePassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password cannot be the same as your current password", "field": "new_password"})
	case errors.Is(err, service.ErrPasswordReused):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot reuse a recent password", "field": "new_password"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "password was changed concurrently, request a new code"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset password"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully. You can now login with your new password."})
}

// ChangePassword rotates the password of the authenticated account
// and clears the first-login flag (protected).
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	accountID, ok := c.Get(middleware.CtxAccountID).(uint64)
	if !ok || accountID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password required"})
	}
	if req.NewPassword != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords don't match", "field": "confirm_password"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.ChangePassword(ctx, accountID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "new_password"})
	case errors.Is(err, service.ErrWrongPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "the current password you entered is incorrect", "field": "current_password"})
	case errors.Is(err, service.ErrSamePassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password cannot be the same as your current password", "field": "new_password"})
	case errors.Is(err, service.ErrPasswordReused):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot reuse a recent password", "field": "new_password"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "password was changed concurrently, try again"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change password"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}

type profilePart struct {
	ID              uint64 `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Avatar          string `json:"avatar,omitempty"`
	StudentID       string `json:"student_id,omitempty"`
	LecturerID      string `json:"lecturer_id,omitempty"`
	Department      string `json:"department,omitempty"`
	Year            string `json:"year,omitempty"`
	LecturerRole    string `json:"lecturer_role,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	Title           string `json:"title,omitempty"`
	InstitutionID   uint64 `json:"institution_id"`
	InstitutionName string `json:"institution_name,omitempty"`
	Status          string `json:"status"`
	EmailVerified   bool   `json:"email_verified"`
	IsFirstLogin    bool   `json:"is_first_login"`
}

func toProfilePart(a model.Account, institutionName string) profilePart {
	return profilePart{
		ID:              a.ID,
		Email:           a.Email,
		Role:            string(a.Role),
		FirstName:       a.Profile.FirstName,
		LastName:        a.Profile.LastName,
		Avatar:          a.Profile.Avatar,
		StudentID:       a.Profile.StudentID,
		LecturerID:      a.Profile.LecturerID,
		Department:      a.Profile.Department,
		Year:            a.Profile.Year,
		LecturerRole:    a.Profile.LecturerRole,
		Specialization:  a.Profile.Specialization,
		Title:           a.Profile.Title,
		InstitutionID:   a.InstitutionID,
		InstitutionName: institutionName,
		Status:          string(a.Status),
		EmailVerified:   a.EmailVerified,
		IsFirstLogin:    a.IsFirstLogin,
	}
}

// Me returns the authenticated account's profile, read from the
// database rather than echoed from the token claims, so it reflects
// edits made after login (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	accountID, ok := c.Get(middleware.CtxAccountID).(uint64)
	if !ok || accountID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, instName, err := h.Identity.Profile(ctx, accountID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user": toProfilePart(acc, instName)})
}

type updateProfileReq struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Department     string `json:"department"`
	Year           string `json:"year"`
	Specialization string `json:"specialization"`
}

// UpdateProfile merges self-service profile edits into the
// authenticated account; empty fields are left untouched
// (protected).
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	accountID, ok := c.Get(middleware.CtxAccountID).(uint64)
	if !ok || accountID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FirstName == "" && req.LastName == "" && req.Department == "" && req.Year == "" && req.Specialization == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Identity.UpdateProfile(ctx, accountID, service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Department:     req.Department,
		Year:           req.Year,
		Specialization: req.Specialization,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated", "user": toProfilePart(acc, "")})
}

type updateAvatarReq struct {
	Avatar string `json:"avatar"`
}

// UpdateAvatar replaces the authenticated account's avatar; an
// empty value restores the initials default (protected).
func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	accountID, ok := c.Get(middleware.CtxAccountID).(uint64)
	if !ok || accountID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateAvatarReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Identity.UpdateAvatar(ctx, accountID, strings.TrimSpace(req.Avatar))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update avatar"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Avatar updated", "avatar": acc.Profile.Avatar})
}
