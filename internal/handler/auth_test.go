package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-id/internal/config"
	"github.com/iliyamo/campus-id/internal/middleware"
	"github.com/iliyamo/campus-id/internal/model"
	"github.com/iliyamo/campus-id/internal/repository"
	"github.com/iliyamo/campus-id/internal/service"
)

// stubAccounts serves a single account for read paths; the write
// methods these tests never reach are no-ops.
type stubAccounts struct{ acc model.Account }

func (s stubAccounts) Create(context.Context, *model.Account) (uint64, error) { return 0, nil }

func (s stubAccounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	if email == s.acc.Email {
		return s.acc, nil
	}
	return model.Account{}, repository.ErrNotFound
}

func (s stubAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	if id == s.acc.ID {
		return s.acc, nil
	}
	return model.Account{}, repository.ErrNotFound
}

func (s stubAccounts) GetByIdentifier(_ context.Context, identifier string, _ model.Role) (model.Account, error) {
	if identifier == s.acc.Email {
		return s.acc, nil
	}
	return model.Account{}, repository.ErrNotFound
}

func (s stubAccounts) MarkVerified(context.Context, string) error { return nil }

func (s stubAccounts) UpdatePassword(context.Context, uint64, string, []string, bool, string) (bool, error) {
	return true, nil
}

func (s stubAccounts) UpdateProfile(context.Context, uint64, model.Profile) error { return nil }

func (s stubAccounts) UpdateStatus(context.Context, uint64, model.AccountStatus) error { return nil }

func (s stubAccounts) CountAdmins(context.Context, uint64) (int, error) { return 0, nil }

type stubInstitutions struct{ inst model.Institution }

func (s stubInstitutions) GetByCode(_ context.Context, code string) (model.Institution, error) {
	if strings.EqualFold(code, s.inst.Code) {
		return s.inst, nil
	}
	return model.Institution{}, repository.ErrNotFound
}

func (s stubInstitutions) GetByID(_ context.Context, id uint64) (model.Institution, error) {
	if id == s.inst.ID {
		return s.inst, nil
	}
	return model.Institution{}, repository.ErrNotFound
}

func newProfileIdentity(acc model.Account) *service.Identity {
	inst := model.Institution{
		ID: acc.InstitutionID, Name: "Massachusetts Institute of Technology",
		Code: "MIT", Status: model.InstitutionActive,
	}
	return service.NewIdentity(config.Config{}, stubAccounts{acc: acc}, stubInstitutions{inst: inst}, nil, nil)
}

func meRequest(h *AuthHandler, accountID uint64) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxAccountID, accountID)
	return rec, h.Me(c)
}

func TestMeReturnsStoredProfile(t *testing.T) {
	t.Parallel()

	acc := model.Account{
		ID:            42,
		Email:         "ada@mit.edu",
		PasswordHash:  "$2a$12$notarealhash",
		Role:          model.RoleStudent,
		InstitutionID: 7,
		Status:        model.StatusActive,
		EmailVerified: true,
		IsFirstLogin:  true,
		Profile: model.Profile{
			FirstName: "Ada", LastName: "Lovelace", StudentID: "MIT-123456789",
			Department: "Mathematics", Year: "2", Avatar: "AL",
		},
	}
	h := NewAuthHandler(newProfileIdentity(acc), nil)

	rec, err := meRequest(h, 42)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ada@mit.edu", body.User["email"])
	assert.Equal(t, "Ada", body.User["first_name"])
	assert.Equal(t, "Lovelace", body.User["last_name"])
	assert.Equal(t, "MIT-123456789", body.User["student_id"])
	assert.Equal(t, "Mathematics", body.User["department"])
	assert.Equal(t, "AL", body.User["avatar"])
	assert.Equal(t, "Massachusetts Institute of Technology", body.User["institution_name"])
	assert.Equal(t, true, body.User["is_first_login"])

	// Password material never leaves the handler.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestMeUnknownAccount(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(newProfileIdentity(model.Account{ID: 42, InstitutionID: 7}), nil)

	rec, err := meRequest(h, 99)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
