package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/middleware"
	"github.com/iliyamo/campus-id/internal/model"
	"github.com/iliyamo/campus-id/internal/repository"
	"github.com/iliyamo/campus-id/internal/service"
)

// AdminHandler exposes the provisioning endpoints available to
// institution admins.
type AdminHandler struct {
	Identity *service.Identity
	Accounts *repository.AccountRepo
}

func NewAdminHandler(identity *service.Identity, accounts *repository.AccountRepo) *AdminHandler {
	return &AdminHandler{Identity: identity, Accounts: accounts}
}

type provisionReq struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	Year           string `json:"year"`           // students
	Role           string `json:"role"`           // lecturers: Prof, Dr, Mr, Mrs, Ms
	Specialization string `json:"specialization"` // lecturers
}

type provisionedPart struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	StudentID    string `json:"student_id,omitempty"`
	LecturerID   string `json:"lecturer_id,omitempty"`
	Department   string `json:"department,omitempty"`
	Year         string `json:"year,omitempty"`
	Status       string `json:"status"`
	IsFirstLogin bool   `json:"is_first_login"`
}

// adminID pulls the authenticated admin's account ID from the
// context set by JWTAuth.
func adminID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(middleware.CtxAccountID).(uint64)
	return id, ok && id != 0
}

var lecturerRoles = map[string]bool{"Prof": true, "Dr": true, "Mr": true, "Mrs": true, "Ms": true}

// CreateStudent provisions a pending student account under the
// admin's institution. The default password and activation link go
// out by mail; the default password is also returned for the
// admin's reference.
func (h *AdminHandler) CreateStudent(c echo.Context) error {
	id, ok := adminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req provisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Department == "" || req.Year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name, last_name, email, department and year are required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Identity.ProvisionStudent(ctx, id, service.ProvisionInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Department: req.Department,
		Year:       req.Year,
	})
	if err != nil {
		return provisionError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":          "Student account created. An activation email has been sent.",
		"student":          toProvisionedPart(res.Account),
		"default_password": res.DefaultPassword,
	})
}

// CreateLecturer provisions a pending lecturer account under the
// admin's institution.
func (h *AdminHandler) CreateLecturer(c echo.Context) error {
	id, ok := adminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req provisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Department == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name, last_name, email and department are required"})
	}
	if !lecturerRoles[req.Role] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be one of: Prof, Dr, Mr, Mrs, Ms"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Identity.ProvisionLecturer(ctx, id, service.ProvisionInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Department:     req.Department,
		LecturerRole:   req.Role,
		Specialization: req.Specialization,
	})
	if err != nil {
		return provisionError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":          "Lecturer account created. An activation email has been sent.",
		"lecturer":         toProvisionedPart(res.Account),
		"default_password": res.DefaultPassword,
	})
}

// ListStudents returns the students of the admin's institution.
func (h *AdminHandler) ListStudents(c echo.Context) error {
	return h.list(c, model.RoleStudent, "students")
}

// ListLecturers returns the lecturers of the admin's institution.
func (h *AdminHandler) ListLecturers(c echo.Context) error {
	return h.list(c, model.RoleLecturer, "lecturers")
}

func (h *AdminHandler) list(c echo.Context, role model.Role, key string) error {
	instID, ok := c.Get(middleware.CtxInstitutionID).(uint64)
	if !ok || instID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	accounts, err := h.Accounts.ListByRole(ctx, instID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]provisionedPart, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toProvisionedPart(a))
	}
	return c.JSON(http.StatusOK, echo.Map{key: out})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateAccountStatus is the manual lifecycle override for an
// account (e.g. suspension). There is no automatic re-activation.
func (h *AdminHandler) UpdateAccountStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := model.AccountStatus(req.Status)
	if status != model.StatusActive && status != model.StatusSuspended {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or suspended"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Identity.SetAccountStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account status updated", "status": string(status)})
}

func toProvisionedPart(a model.Account) provisionedPart {
	return provisionedPart{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Profile.FirstName + " " + a.Profile.LastName,
		StudentID:    a.Profile.StudentID,
		LecturerID:   a.Profile.LecturerID,
		Department:   a.Profile.Department,
		Year:         a.Profile.Year,
		Status:       string(a.Status),
		IsFirstLogin: a.IsFirstLogin,
	}
}

func provisionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "admin or institution not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
	}
}
