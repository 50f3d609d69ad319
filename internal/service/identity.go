package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/campus-id/internal/config"
	"github.com/iliyamo/campus-id/internal/model"
	q "github.com/iliyamo/campus-id/internal/queue"
	"github.com/iliyamo/campus-id/internal/repository"
	"github.com/iliyamo/campus-id/internal/utils"
)

// MaxAdminsPerInstitution caps admin self-registrations per tenant.
const MaxAdminsPerInstitution = 10

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// AccountStore is the persistence contract the orchestrator needs
// from the accounts table, satisfied by repository.AccountRepo.
// UpdatePassword must be conditional on the hash the caller read
// (compare-and-swap) so concurrent password changes cannot commit
// divergent histories.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	GetByIdentifier(ctx context.Context, identifier string, role model.Role) (model.Account, error)
	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, id uint64, newHash string, history []string, clearFirstLogin bool, expectHash string) (bool, error)
	UpdateProfile(ctx context.Context, id uint64, p model.Profile) error
	UpdateStatus(ctx context.Context, id uint64, status model.AccountStatus) error
	CountAdmins(ctx context.Context, institutionID uint64) (int, error)
}

// InstitutionStore is the minimal read surface the orchestrator
// needs from institutions, satisfied by repository.InstitutionRepo.
type InstitutionStore interface {
	GetByCode(ctx context.Context, code string) (model.Institution, error)
	GetByID(ctx context.Context, id uint64) (model.Institution, error)
}

// Identity drives the account state machine: provisioning, email
// verification, login, session refresh and the password lifecycle.
// It composes the one-time code engine, the password helpers and
// the session token issuer; all store access goes through the
// injected interfaces so tests can run against in-memory fakes.
type Identity struct {
	Cfg          config.Config
	Accounts     AccountStore
	Institutions InstitutionStore
	OTP          *OTPEngine
	Notify       Notifier
	Now          func() time.Time
}

func NewIdentity(cfg config.Config, accounts AccountStore, institutions InstitutionStore, otp *OTPEngine, notify Notifier) *Identity {
	return &Identity{
		Cfg:          cfg,
		Accounts:     accounts,
		Institutions: institutions,
		OTP:          otp,
		Notify:       notify,
		Now:          time.Now,
	}
}

// ----- provisioning -----

// ProvisionInput carries the admin-supplied fields for a new
// student or lecturer account.
type ProvisionInput struct {
	FirstName      string
	LastName       string
	Email          string
	Department     string
	Year           string // students
	LecturerRole   string // lecturers: Prof, Dr, Mr, Mrs, Ms
	Specialization string // lecturers
}

// ProvisionResult is returned to the provisioning admin. The
// default password is included for reference; the account holder
// is forced to change it on first login.
type ProvisionResult struct {
	Account         model.Account
	DefaultPassword string
	// VerificationToken is the magic-link token mailed to the new
	// account. Exposed for tests; handlers do not return it.
	VerificationToken string
}

// ProvisionStudent creates a pending student account under the
// provisioning admin's institution. The default password is
// lowercase(firstName)+"123", the account starts unverified with
// is_first_login set, and a 24h magic-link token is issued and
// mailed.
func (s *Identity) ProvisionStudent(ctx context.Context, adminID uint64, in ProvisionInput) (ProvisionResult, error) {
	return s.provision(ctx, adminID, in, model.RoleStudent)
}

// ProvisionLecturer is ProvisionStudent for lecturer accounts.
func (s *Identity) ProvisionLecturer(ctx context.Context, adminID uint64, in ProvisionInput) (ProvisionResult, error) {
	return s.provision(ctx, adminID, in, model.RoleLecturer)
}

func (s *Identity) provision(ctx context.Context, adminID uint64, in ProvisionInput, role model.Role) (ProvisionResult, error) {
	admin, err := s.Accounts.GetByID(ctx, adminID)
	if err != nil {
		return ProvisionResult{}, err
	}
	inst, err := s.Institutions.GetByID(ctx, admin.InstitutionID)
	if err != nil {
		return ProvisionResult{}, err
	}

	defaultPassword := strings.ToLower(in.FirstName) + "123"
	hash, err := utils.HashPassword(defaultPassword, s.Cfg.BcryptCost)
	if err != nil {
		return ProvisionResult{}, err
	}

	acc := model.Account{
		Email:           in.Email,
		PasswordHash:    hash,
		PasswordHistory: []string{},
		Role:            role,
		InstitutionID:   inst.ID,
		Status:          model.StatusPending,
		EmailVerified:   false,
		IsFirstLogin:    true,
		Profile: model.Profile{
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			Department:     in.Department,
			Year:           in.Year,
			LecturerRole:   in.LecturerRole,
			Specialization: in.Specialization,
		},
	}
	switch role {
	case model.RoleStudent:
		acc.Profile.StudentID = s.secondaryID(inst.Code, "")
	case model.RoleLecturer:
		acc.Profile.LecturerID = s.secondaryID(inst.Code, "LEC")
	}
	acc.Profile.Avatar = acc.Profile.Initials()

	id, err := s.Accounts.Create(ctx, &acc)
	if err != nil {
		return ProvisionResult{}, err
	}
	acc.ID = id

	token, err := s.OTP.IssueToken(ctx, in.Email, model.PurposeEmailVerification)
	if err != nil {
		return ProvisionResult{}, err
	}
	s.sendActivation(ctx, acc, inst.Name, token, defaultPassword)

	return ProvisionResult{Account: acc, DefaultPassword: defaultPassword, VerificationToken: token}, nil
}

// secondaryID builds a student or lecturer identifier such as
// MIT-123456789 or MIT-LEC-123456789: institution code, optional
// tag, last six digits of the current unix-milli clock and three
// random digits.
func (s *Identity) secondaryID(institutionCode, tag string) string {
	ts := fmt.Sprintf("%d", s.Now().UnixMilli())
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	rnd, err := utils.RandomDigits(3)
	if err != nil {
		rnd = "000"
	}
	if tag != "" {
		return fmt.Sprintf("%s-%s-%s%s", institutionCode, tag, ts, rnd)
	}
	return fmt.Sprintf("%s-%s%s", institutionCode, ts, rnd)
}

// sendActivation mails the verification link plus the default
// password. Best-effort: provisioning already succeeded and a
// failed mail must not undo it.
func (s *Identity) sendActivation(ctx context.Context, acc model.Account, institutionName, token, defaultPassword string) {
	link := fmt.Sprintf("%s/v1/auth/verify-email?token=%s&email=%s",
		s.Cfg.BackendURL, token, url.QueryEscape(acc.Email))
	body := fmt.Sprintf("Hello %s %s,\n\nAn account has been created for you at %s.\n\n"+
		"Activate it within 24 hours: %s\n\nYour temporary password is %q. "+
		"You will be asked to change it after your first login.\n",
		acc.Profile.FirstName, acc.Profile.LastName, institutionName, link, defaultPassword)
	ev := q.EmailEvent{
		To:          acc.Email,
		Subject:     "Activate your campus account",
		Body:        body,
		Kind:        "activation",
		Institution: institutionName,
	}
	if err := s.Notify.Send(ctx, ev); err != nil {
		log.Printf("identity: activation mail to %s not queued: %v", acc.Email, err)
	}
}

// ----- admin self-registration -----

// RegisterAdminInput carries the self-registration fields for an
// institution admin.
type RegisterAdminInput struct {
	InstitutionCode string
	FirstName       string
	LastName        string
	Email           string
	Password        string
}

// RegisterAdmin creates a pending admin account at an existing
// active institution. The caller picks their own password; a
// 6-digit OTP is mailed for email verification.
func (s *Identity) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (model.Account, error) {
	if len(in.Password) < MinPasswordLength {
		return model.Account{}, ErrPasswordTooShort
	}
	inst, err := s.Institutions.GetByCode(ctx, in.InstitutionCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, ErrInstitutionUnavailable
		}
		return model.Account{}, err
	}
	if inst.Status != model.InstitutionActive {
		return model.Account{}, ErrInstitutionUnavailable
	}
	n, err := s.Accounts.CountAdmins(ctx, inst.ID)
	if err != nil {
		return model.Account{}, err
	}
	if n >= MaxAdminsPerInstitution {
		return model.Account{}, ErrAdminLimit
	}

	hash, err := utils.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		return model.Account{}, err
	}
	acc := model.Account{
		Email:           in.Email,
		PasswordHash:    hash,
		PasswordHistory: []string{},
		Role:            model.RoleAdmin,
		InstitutionID:   inst.ID,
		Status:          model.StatusPending,
		EmailVerified:   false,
		IsFirstLogin:    false, // chose their own password
		Profile: model.Profile{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Title:     "Institution Administrator",
		},
	}
	acc.Profile.Avatar = acc.Profile.Initials()

	id, err := s.Accounts.Create(ctx, &acc)
	if err != nil {
		return model.Account{}, err
	}
	acc.ID = id

	if _, err := s.OTP.IssueOTP(ctx, in.Email, model.PurposeEmailVerification); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// ----- verification -----

// VerifyEmail consumes a one-time code (OTP or magic-link token)
// issued for email verification and, on success, transitions the
// account to active with email_verified set.
func (s *Identity) VerifyEmail(ctx context.Context, email, code string) error {
	if err := s.OTP.Consume(ctx, email, code, model.PurposeEmailVerification); err != nil {
		return err
	}
	return s.Accounts.MarkVerified(ctx, email)
}

// ResendVerification issues a fresh verification OTP for an
// existing account, superseding any outstanding code.
func (s *Identity) ResendVerification(ctx context.Context, email string) error {
	if _, err := s.Accounts.GetByEmail(ctx, email); err != nil {
		return err
	}
	_, err := s.OTP.IssueOTP(ctx, email, model.PurposeEmailVerification)
	return err
}

// ----- login and sessions -----

// LoginResult is returned on successful authentication or refresh.
type LoginResult struct {
	Account         model.Account
	InstitutionName string
	Session         utils.SessionPair
}

// Login authenticates an identifier (email, or student/lecturer ID
// for those roles) and password. The checks run in a fixed order:
// account exists, password verifies, email verified, status active.
// The first two collapse into ErrInvalidCredentials so a caller
// cannot tell a wrong password from an unknown identifier.
func (s *Identity) Login(ctx context.Context, identifier, password string, role model.Role) (LoginResult, error) {
	acc, err := s.Accounts.GetByIdentifier(ctx, identifier, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !acc.EmailVerified {
		return LoginResult{}, ErrEmailNotVerified
	}
	if acc.Status != model.StatusActive {
		return LoginResult{}, ErrAccountNotActive
	}
	return s.sessionFor(ctx, acc)
}

// Refresh exchanges a valid refresh token for a fresh session pair.
// The account is re-read so the new access token reflects the
// current role, institution and email rather than the claims from
// login time.
func (s *Identity) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	claims, err := utils.VerifyRefresh(s.Cfg.JWTRefreshSecret, refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	acc, err := s.Accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return LoginResult{}, err
	}
	return s.sessionFor(ctx, acc)
}

func (s *Identity) sessionFor(ctx context.Context, acc model.Account) (LoginResult, error) {
	pair, err := utils.NewSessionPair(s.Cfg.JWTSecret, s.Cfg.JWTRefreshSecret,
		utils.SessionClaims{
			AccountID:     acc.ID,
			Role:          string(acc.Role),
			InstitutionID: acc.InstitutionID,
			Email:         acc.Email,
		},
		time.Duration(s.Cfg.AccessTTLHours)*time.Hour,
		time.Duration(s.Cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		return LoginResult{}, err
	}
	name := "Unknown"
	if inst, err := s.Institutions.GetByID(ctx, acc.InstitutionID); err == nil {
		name = inst.Name
	}
	return LoginResult{Account: acc, InstitutionName: name, Session: pair}, nil
}

// ----- profile -----

// Profile returns the account record plus its institution name.
// The password fields travel on the model; handlers never
// serialize them.
func (s *Identity) Profile(ctx context.Context, accountID uint64) (model.Account, string, error) {
	acc, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, "", err
	}
	name := "Unknown"
	if inst, err := s.Institutions.GetByID(ctx, acc.InstitutionID); err == nil {
		name = inst.Name
	}
	return acc, name, nil
}

// ProfileUpdate carries the self-service editable profile fields.
// Empty strings leave the stored value untouched.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	Department     string
	Year           string
	Specialization string
}

// UpdateProfile merges the non-empty fields into the account's
// profile and returns the updated record. Role, secondary IDs and
// the avatar are not editable here.
func (s *Identity) UpdateProfile(ctx context.Context, accountID uint64, in ProfileUpdate) (model.Account, error) {
	acc, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	if in.FirstName != "" {
		acc.Profile.FirstName = in.FirstName
	}
	if in.LastName != "" {
		acc.Profile.LastName = in.LastName
	}
	if in.Department != "" {
		acc.Profile.Department = in.Department
	}
	if in.Year != "" {
		acc.Profile.Year = in.Year
	}
	if in.Specialization != "" {
		acc.Profile.Specialization = in.Specialization
	}
	if err := s.Accounts.UpdateProfile(ctx, acc.ID, acc.Profile); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// UpdateAvatar replaces the account's avatar value. An empty value
// restores the initials default.
func (s *Identity) UpdateAvatar(ctx context.Context, accountID uint64, avatar string) (model.Account, error) {
	acc, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	if avatar == "" {
		avatar = acc.Profile.Initials()
	}
	acc.Profile.Avatar = avatar
	if err := s.Accounts.UpdateProfile(ctx, acc.ID, acc.Profile); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// ----- password lifecycle -----

// ForgotPassword issues a password-reset OTP when an account with
// the email and role exists. It returns nil either way: the caller
// always answers with the same generic message so the endpoint
// cannot be used to enumerate registered emails.
func (s *Identity) ForgotPassword(ctx context.Context, email string, role model.Role) error {
	if _, err := s.Accounts.GetByIdentifier(ctx, email, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err := s.OTP.IssueOTP(ctx, email, model.PurposePasswordReset)
	return err
}

// ResetPassword consumes a reset OTP and installs a new password,
// enforcing the reuse policy and rotating the history. It does not
// touch the first-login flag; only an explicit change does.
func (s *Identity) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if err := s.OTP.Consume(ctx, email, code, model.PurposePasswordReset); err != nil {
		return err
	}
	acc, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.installPassword(ctx, acc, newPassword, false)
}

// ChangePassword verifies the current password and installs a new
// one, clearing the first-login flag. Used both for routine changes
// and the forced change after a provisioned first login.
func (s *Identity) ChangePassword(ctx context.Context, accountID uint64, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	acc, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(acc.PasswordHash, currentPassword) {
		return ErrWrongPassword
	}
	return s.installPassword(ctx, acc, newPassword, true)
}

// installPassword runs the reuse check against the hashes read in
// acc and commits the swap conditionally on acc.PasswordHash still
// being current. A concurrent change invalidates the check, so the
// losing writer gets ErrConflict instead of committing a stale
// history.
func (s *Identity) installPassword(ctx context.Context, acc model.Account, newPassword string, clearFirstLogin bool) error {
	switch utils.CheckReuse(newPassword, acc.PasswordHash, acc.PasswordHistory) {
	case utils.ReuseSameAsCurrent:
		return ErrSamePassword
	case utils.ReuseRecent:
		return ErrPasswordReused
	}
	newHash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	history := utils.RotateHistory(acc.PasswordHistory, acc.PasswordHash)
	ok, err := s.Accounts.UpdatePassword(ctx, acc.ID, newHash, history, clearFirstLogin, acc.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// SetAccountStatus is the manual lifecycle override, e.g. a
// suspension. No automatic re-activation exists.
func (s *Identity) SetAccountStatus(ctx context.Context, accountID uint64, status model.AccountStatus) error {
	return s.Accounts.UpdateStatus(ctx, accountID, status)
}
