// Package service implements the credential and verification
// lifecycle of the platform: one-time code issuance and
// consumption, password policy enforcement, session issuance and
// the account state machine. Handlers stay thin and translate the
// sentinel errors below into HTTP responses.
package service

import "errors"

// ErrInvalidCredentials covers both "no such account" and "wrong
// password" on login. The two cases are deliberately
// indistinguishable so callers cannot enumerate registered emails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailNotVerified is returned when credentials are correct but
// the email has not been confirmed yet. Distinct from
// ErrInvalidCredentials so clients can offer a resend flow.
var ErrEmailNotVerified = errors.New("email not verified")

// ErrAccountNotActive is returned when credentials are correct and
// the email verified, but the account is pending or suspended.
var ErrAccountNotActive = errors.New("account is not active")

// ErrCodeInvalid is returned when a one-time code is unknown,
// already consumed or expired. No distinction is surfaced.
var ErrCodeInvalid = errors.New("invalid or expired code")

// ErrWrongPassword is returned by ChangePassword when the supplied
// current password does not verify. Unlike login this is an
// authenticated flow, so being specific leaks nothing.
var ErrWrongPassword = errors.New("current password is incorrect")

// ErrSamePassword rejects a new password equal to the current one.
var ErrSamePassword = errors.New("new password must differ from current password")

// ErrPasswordReused rejects a new password matching one of the last
// five.
var ErrPasswordReused = errors.New("password was used recently")

// ErrPasswordTooShort rejects passwords under eight characters.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ErrInstitutionUnavailable is returned when admin registration
// references an institution that does not exist or is not active.
var ErrInstitutionUnavailable = errors.New("institution not found or inactive")

// ErrAdminLimit is returned when an institution already has the
// maximum number of admin accounts.
var ErrAdminLimit = errors.New("institution admin limit reached")

// ErrConflict is returned when a conditional password update loses
// a race against a concurrent change. The caller should retry from
// the read step.
var ErrConflict = errors.New("conflicting concurrent update")
