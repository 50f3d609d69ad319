package model

import "time"

// Purpose distinguishes what a one-time code may be consumed for.
// A code issued for one purpose can never satisfy another.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// OneTimeCode represents a row in the `one_time_codes` table.  A
// code is either a 6-digit OTP or a 32-character magic-link token;
// both share the same storage and consumption rules.  At most one
// unused, unexpired code per (email, purpose) is ever valid:
// issuing a new code marks all prior unused ones as used.
//
// Fields:
//  ID        – primary key identifier.
//  Email     – subject email address.
//  Code      – the OTP digits or magic-link token value.
//  Purpose   – what the code was issued for.
//  ExpiresAt – when the code stops being consumable.
//  Used      – set once the code is consumed or superseded.
//  CreatedAt – when the code was issued.
type OneTimeCode struct {
	ID        uint64    // one_time_codes.id
	Email     string    // one_time_codes.email
	Code      string    // one_time_codes.code
	Purpose   Purpose   // one_time_codes.purpose
	ExpiresAt time.Time // one_time_codes.expires_at
	Used      bool      // one_time_codes.used
	CreatedAt time.Time // one_time_codes.created_at
}
