package model

import "time"

// InstitutionStatus is the lifecycle state of an institution.  A
// non-active institution blocks new admin registrations; existing
// accounts are untouched.
type InstitutionStatus string

const (
	InstitutionActive    InstitutionStatus = "active"
	InstitutionInactive  InstitutionStatus = "inactive"
	InstitutionSuspended InstitutionStatus = "suspended"
)

// ParseInstitutionStatus validates a raw status string from a
// request body.
func ParseInstitutionStatus(s string) (InstitutionStatus, bool) {
	switch InstitutionStatus(s) {
	case InstitutionActive, InstitutionInactive, InstitutionSuspended:
		return InstitutionStatus(s), true
	}
	return "", false
}

// Institution represents a row in the `institutions` table.  An
// institution is the tenant boundary of the platform: every account
// belongs to exactly one.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the institution.
//  Code      – unique short code (e.g. "MIT"), always upper-cased.
//  Status    – lifecycle status (active, inactive or suspended).
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Institution struct {
	ID        uint64            // institutions.id
	Name      string            // institutions.name
	Code      string            // institutions.code
	Status    InstitutionStatus // institutions.status
	CreatedAt time.Time         // institutions.created_at
	UpdatedAt time.Time         // institutions.updated_at
}
