// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as services and handlers to distinguish between failure
// scenarios without string matching. For example, ErrEmailExists
// signals a unique-constraint violation on accounts.email, while
// ErrNotFound covers any missing account or institution.
package repository

import "errors"

// ErrEmailExists is returned when an insert violates the unique
// constraint on accounts.email. Handlers translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrCodeExists is returned when an insert violates the unique
// constraint on institutions.code. Handlers translate this into an
// HTTP 409 response.
var ErrCodeExists = errors.New("institution code already exists")

// ErrNotFound is returned when a referenced account or institution
// does not exist. Handlers translate this into an HTTP 404
// response, except on login where it is collapsed into the generic
// invalid-credentials answer.
var ErrNotFound = errors.New("not found")
