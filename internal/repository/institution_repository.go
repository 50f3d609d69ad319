package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/campus-id/internal/model"
)

// InstitutionRepo persists institutions, the tenant boundary of the
// platform.
type InstitutionRepo struct{ DB *sql.DB }

func NewInstitutionRepo(db *sql.DB) *InstitutionRepo { return &InstitutionRepo{DB: db} }

// Create inserts an institution and fills in its ID. Codes are
// stored upper-cased; duplicates surface as ErrCodeExists.
func (r *InstitutionRepo) Create(ctx context.Context, inst *model.Institution) error {
	inst.Code = strings.ToUpper(strings.TrimSpace(inst.Code))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO institutions (name, code, status) VALUES (?,?,?)",
		inst.Name, inst.Code, inst.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrCodeExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inst.ID = uint64(id)
	return nil
}

// GetByCode fetches an institution by its upper-cased code.
func (r *InstitutionRepo) GetByCode(ctx context.Context, code string) (model.Institution, error) {
	return r.one(ctx, "SELECT id,name,code,status,created_at,updated_at FROM institutions WHERE code=? LIMIT 1",
		strings.ToUpper(strings.TrimSpace(code)))
}

// GetByID fetches an institution by id.
func (r *InstitutionRepo) GetByID(ctx context.Context, id uint64) (model.Institution, error) {
	return r.one(ctx, "SELECT id,name,code,status,created_at,updated_at FROM institutions WHERE id=? LIMIT 1", id)
}

// List returns all institutions, optionally restricted to active
// ones (the public signup dropdown only shows those).
func (r *InstitutionRepo) List(ctx context.Context, activeOnly bool) ([]model.Institution, error) {
	q := "SELECT id,name,code,status,created_at,updated_at FROM institutions ORDER BY name"
	var args []any
	if activeOnly {
		q = "SELECT id,name,code,status,created_at,updated_at FROM institutions WHERE status=? ORDER BY name"
		args = append(args, model.InstitutionActive)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Institution
	for rows.Next() {
		var inst model.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Code, &inst.Status, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// UpdateStatus changes the lifecycle status of the institution with
// the given code.
func (r *InstitutionRepo) UpdateStatus(ctx context.Context, code string, status model.InstitutionStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE institutions SET status=?, updated_at=NOW() WHERE code=?",
		status, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InstitutionRepo) one(ctx context.Context, query string, args ...any) (model.Institution, error) {
	var inst model.Institution
	err := r.DB.QueryRowContext(ctx, query, args...).
		Scan(&inst.ID, &inst.Name, &inst.Code, &inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Institution{}, ErrNotFound
	}
	return inst, err
}
