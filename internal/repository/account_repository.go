package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/campus-id/internal/model"
)

// AccountRepo persists account records in the `accounts` table.
// Password history is stored as a JSON array in a single column,
// most recent hash first.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id,email,password_hash,password_history,role,institution_id,status,email_verified,is_first_login," +
	"first_name,last_name,student_id,lecturer_id,department,year,lecturer_role,specialization,title,avatar,created_at,updated_at"

// Create inserts an account and returns its ID. Duplicate emails
// surface as ErrEmailExists.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) (uint64, error) {
	history, err := json.Marshal(a.PasswordHistory)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, password_history, role, institution_id, status, email_verified, is_first_login, "+
			"first_name, last_name, student_id, lecturer_id, department, year, lecturer_role, specialization, title, avatar) "+
			"VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		a.Email, a.PasswordHash, string(history), a.Role, a.InstitutionID, a.Status, a.EmailVerified, a.IsFirstLogin,
		a.Profile.FirstName, a.Profile.LastName, a.Profile.StudentID, a.Profile.LecturerID, a.Profile.Department,
		a.Profile.Year, a.Profile.LecturerRole, a.Profile.Specialization, a.Profile.Title, a.Profile.Avatar)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by exact email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
}

// GetByIdentifier resolves a login identifier for the given role.
// Students may log in with their email or student ID, lecturers
// with their email or lecturer ID, admins with email only.
func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string, role model.Role) (model.Account, error) {
	switch role {
	case model.RoleStudent:
		return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE (email=? OR student_id=?) AND role=? LIMIT 1",
			identifier, identifier, role)
	case model.RoleLecturer:
		return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE (email=? OR lecturer_id=?) AND role=? LIMIT 1",
			identifier, identifier, role)
	default:
		return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email=? AND role=? LIMIT 1", identifier, role)
	}
}

// MarkVerified flips an account to active and verified. Called once
// a one-time code for the email has been consumed.
func (r *AccountRepo) MarkVerified(ctx context.Context, email string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET email_verified=1, status=?, updated_at=NOW() WHERE email=?",
		model.StatusActive, email)
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

// UpdatePassword swaps in a new password hash and history for the
// account, optionally clearing the first-login flag. The update is
// conditioned on the hash the caller read for its reuse check, so
// two racing password changes cannot both commit; the loser sees
// false and must re-read.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, newHash string, history []string, clearFirstLogin bool, expectHash string) (bool, error) {
	raw, err := json.Marshal(history)
	if err != nil {
		return false, err
	}
	q := "UPDATE accounts SET password_hash=?, password_history=?, updated_at=NOW() WHERE id=? AND password_hash=?"
	if clearFirstLogin {
		q = "UPDATE accounts SET password_hash=?, password_history=?, is_first_login=0, updated_at=NOW() WHERE id=? AND password_hash=?"
	}
	res, err := r.DB.ExecContext(ctx, q, newHash, string(raw), id, expectHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateProfile overwrites the profile columns of an account. The
// caller merges its edits into a freshly read profile first, so the
// full column set is written every time.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uint64, p model.Profile) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET first_name=?, last_name=?, student_id=?, lecturer_id=?, department=?, year=?, "+
			"lecturer_role=?, specialization=?, title=?, avatar=?, updated_at=NOW() WHERE id=?",
		p.FirstName, p.LastName, p.StudentID, p.LecturerID, p.Department, p.Year,
		p.LecturerRole, p.Specialization, p.Title, p.Avatar, id)
	return err
}

// UpdateStatus overrides the lifecycle status of an account, e.g.
// a manual suspension. There is no automatic re-activation path.
func (r *AccountRepo) UpdateStatus(ctx context.Context, id uint64, status model.AccountStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET status=?, updated_at=NOW() WHERE id=?", status, id)
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

// CountAdmins returns the number of admin accounts registered at an
// institution.
func (r *AccountRepo) CountAdmins(ctx context.Context, institutionID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE institution_id=? AND role=?",
		institutionID, model.RoleAdmin).Scan(&n)
	return n, err
}

// ListByRole returns the accounts of one role at an institution,
// newest first. Password columns are selected but handlers must
// never serialize them.
func (r *AccountRepo) ListByRole(ctx context.Context, institutionID uint64, role model.Role) ([]model.Account, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE institution_id=? AND role=? ORDER BY created_at DESC",
		institutionID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) one(ctx context.Context, query string, args ...any) (model.Account, error) {
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	var history sql.NullString
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &history, &a.Role, &a.InstitutionID, &a.Status,
		&a.EmailVerified, &a.IsFirstLogin,
		&a.Profile.FirstName, &a.Profile.LastName, &a.Profile.StudentID, &a.Profile.LecturerID,
		&a.Profile.Department, &a.Profile.Year, &a.Profile.LecturerRole, &a.Profile.Specialization,
		&a.Profile.Title, &a.Profile.Avatar, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	// Legacy rows may carry NULL history; treat as empty.
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &a.PasswordHistory); err != nil {
			return model.Account{}, err
		}
	}
	return a, nil
}
