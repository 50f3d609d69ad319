package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-id/internal/model"
)

// CodeRepo persists one-time codes (OTPs and magic-link tokens) in
// the `one_time_codes` table.
type CodeRepo struct{ DB *sql.DB }

func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{DB: db} }

// Insert stores a freshly issued code with used=0.
func (r *CodeRepo) Insert(ctx context.Context, c model.OneTimeCode) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO one_time_codes (email, code, purpose, expires_at, used) VALUES (?,?,?,?,0)",
		c.Email, c.Code, c.Purpose, c.ExpiresAt)
	return err
}

// InvalidateUnused marks every outstanding unused code for the
// (email, purpose) pair as used. Issuing a new code calls this
// first so at most one code is ever consumable.
func (r *CodeRepo) InvalidateUnused(ctx context.Context, email string, purpose model.Purpose) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE one_time_codes SET used=1 WHERE email=? AND purpose=? AND used=0",
		email, purpose)
	return err
}

// Consume marks a matching unused, unexpired code as used and
// reports whether it did. The check and the flip are one
// conditional UPDATE, so of two racing consumers exactly one sees
// true; expired codes never match regardless of the used flag.
func (r *CodeRepo) Consume(ctx context.Context, email, code string, purpose model.Purpose, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE one_time_codes SET used=1 WHERE email=? AND code=? AND purpose=? AND used=0 AND expires_at>?",
		email, code, purpose, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired removes codes whose expiry has passed. Expiry alone
// already makes them unusable; this is just housekeeping and may be
// run from a background ticker.
func (r *CodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM one_time_codes WHERE expires_at<=?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
