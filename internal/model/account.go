package model

import (
	"strings"
	"time"
)

// Role enumerates the kinds of accounts an institution can hold.
// The raw string values are what we persist in the `accounts.role`
// column and embed in JWT claims, so they must stay stable.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a raw role string coming from a request body
// or a token claim. Unknown values are rejected rather than being
// defaulted so an illegal role can never reach the database.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// AccountStatus is the lifecycle state of an account.  Accounts are
// created pending and become active once their email is verified.
// Suspension is a manual override that blocks login regardless of
// the verification state.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account represents a row in the `accounts` table.  Each field
// corresponds to a column.  The json tags are omitted because these
// structs are used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags and
// never serialize the password fields.
//
// Fields:
//  ID              – primary key identifier of the account.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  PasswordHistory – up to five prior bcrypt hashes, most recent first.
//  Role            – account role (student, lecturer or admin).
//  InstitutionID   – owning institution (foreign key).
//  Status          – lifecycle status (pending, active or suspended).
//  EmailVerified   – whether the email address has been confirmed.
//  IsFirstLogin    – true until the provisioned default password is changed.
//  Profile         – embedded profile columns.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Account struct {
	ID              uint64        // accounts.id
	Email           string        // accounts.email
	PasswordHash    string        // accounts.password_hash
	PasswordHistory []string      // accounts.password_history (JSON array)
	Role            Role          // accounts.role
	InstitutionID   uint64        // accounts.institution_id
	Status          AccountStatus // accounts.status
	EmailVerified   bool          // accounts.email_verified
	IsFirstLogin    bool          // accounts.is_first_login
	Profile         Profile       // profile columns, see below
	CreatedAt       time.Time     // accounts.created_at
	UpdatedAt       time.Time     // accounts.updated_at
}

// Profile carries the role-specific descriptive columns of an
// account. Students have a StudentID and Year, lecturers a
// LecturerID, LecturerRole and Specialization, admins a Title.
// Unused columns stay empty for the other roles.
type Profile struct {
	FirstName      string // accounts.first_name
	LastName       string // accounts.last_name
	StudentID      string // accounts.student_id (students only)
	LecturerID     string // accounts.lecturer_id (lecturers only)
	Department     string // accounts.department
	Year           string // accounts.year (students only)
	LecturerRole   string // accounts.lecturer_role (Prof, Dr, Mr, Mrs, Ms)
	Specialization string // accounts.specialization (lecturers only)
	Title          string // accounts.title (admins only)
	Avatar         string // accounts.avatar (initials by default)
}

// Initials builds the default avatar value from the first letters
// of the first and last name, upper-cased.
func (p Profile) Initials() string {
	out := ""
	if p.FirstName != "" {
		out += string([]rune(p.FirstName)[0])
	}
	if p.LastName != "" {
		out += string([]rune(p.LastName)[0])
	}
	return strings.ToUpper(out)
}
