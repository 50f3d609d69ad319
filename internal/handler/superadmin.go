package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/model"
	"github.com/iliyamo/campus-id/internal/repository"
)

// SuperadminHandler manages institutions, the tenant boundary.
// These endpoints sit behind a static platform key rather than the
// account JWT flow.
type SuperadminHandler struct {
	Institutions *repository.InstitutionRepo
}

func NewSuperadminHandler(institutions *repository.InstitutionRepo) *SuperadminHandler {
	return &SuperadminHandler{Institutions: institutions}
}

type createInstitutionReq struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

type institutionPart struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// CreateInstitution registers a new tenant. Codes are upper-cased
// and unique.
func (h *SuperadminHandler) CreateInstitution(c echo.Context) error {
	var req createInstitutionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if req.Name == "" || len(req.Code) < 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a code of at least 3 characters are required"})
	}
	status := model.InstitutionActive
	if req.Status != "" {
		s, ok := model.ParseInstitutionStatus(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		status = s
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	inst := model.Institution{Name: req.Name, Code: req.Code, Status: status}
	if err := h.Institutions.Create(ctx, &inst); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "institution code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create institution"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Institution created",
		"institution": institutionPart{ID: inst.ID, Name: inst.Name, Code: inst.Code, Status: string(inst.Status)},
	})
}

// ListInstitutions returns every institution regardless of status.
func (h *SuperadminHandler) ListInstitutions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Institutions.List(ctx, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]institutionPart, 0, len(list))
	for _, inst := range list {
		out = append(out, institutionPart{ID: inst.ID, Name: inst.Name, Code: inst.Code, Status: string(inst.Status)})
	}
	return c.JSON(http.StatusOK, echo.Map{"institutions": out})
}

// UpdateInstitutionStatus changes the lifecycle status of the
// institution with the given code.
func (h *SuperadminHandler) UpdateInstitutionStatus(c echo.Context) error {
	code := c.Param("code")
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status, ok := model.ParseInstitutionStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Institutions.UpdateStatus(ctx, code, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "institution not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Institution status updated",
		"code":    strings.ToUpper(strings.TrimSpace(code)),
		"status":  string(status),
	})
}
