package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/campus-id/internal/model"
	q "github.com/iliyamo/campus-id/internal/queue"
	"github.com/iliyamo/campus-id/internal/utils"
)

const (
	// OTPLength is the number of decimal digits in a numeric code.
	OTPLength = 6
	// TokenLength is the number of [A-Za-z0-9] characters in a
	// magic-link token.
	TokenLength = 32
	// OTPTTL is how long a numeric code stays consumable.
	OTPTTL = 10 * time.Minute
	// TokenTTL is how long a magic-link token stays consumable.
	TokenTTL = 24 * time.Hour
)

// CodeStore is the persistence contract of the one-time code
// engine, satisfied by repository.CodeRepo. Consume must be a
// single atomic conditional write: of two racing consumers for the
// same code exactly one may see true.
type CodeStore interface {
	Insert(ctx context.Context, c model.OneTimeCode) error
	InvalidateUnused(ctx context.Context, email string, purpose model.Purpose) error
	Consume(ctx context.Context, email, code string, purpose model.Purpose, now time.Time) (bool, error)
}

// OTPEngine issues and consumes one-time codes. Issuing a new code
// for an (email, purpose) pair supersedes any outstanding unused
// code for that pair, so a leaked older code is dead the moment a
// newer one exists. Now is injectable for tests.
type OTPEngine struct {
	Codes  CodeStore
	Notify Notifier
	Now    func() time.Time
}

func NewOTPEngine(codes CodeStore, notify Notifier) *OTPEngine {
	return &OTPEngine{Codes: codes, Notify: notify, Now: time.Now}
}

// IssueOTP generates a 6-digit code valid for ten minutes, persists
// it and mails it to the subject. The mail is fire-and-forget: a
// delivery failure is logged and does not fail the issuance.
func (e *OTPEngine) IssueOTP(ctx context.Context, email string, purpose model.Purpose) (string, error) {
	code, err := utils.RandomDigits(OTPLength)
	if err != nil {
		return "", err
	}
	if err := e.store(ctx, email, code, purpose, OTPTTL); err != nil {
		return "", err
	}
	subject := "Your verification code"
	if purpose == model.PurposePasswordReset {
		subject = "Your password reset code"
	}
	ev := q.EmailEvent{
		To:      email,
		Subject: subject,
		Body:    fmt.Sprintf("Your code is %s. It expires in %d minutes.", code, int(OTPTTL.Minutes())),
		Kind:    "otp",
	}
	if err := e.Notify.Send(ctx, ev); err != nil {
		log.Printf("otp: mail to %s not queued: %v", email, err)
	}
	return code, nil
}

// IssueToken generates a 32-character magic-link token valid for 24
// hours and persists it. The caller composes the activation mail
// because only it has the link and the provisioning details.
func (e *OTPEngine) IssueToken(ctx context.Context, email string, purpose model.Purpose) (string, error) {
	token, err := utils.RandomToken(TokenLength)
	if err != nil {
		return "", err
	}
	if err := e.store(ctx, email, token, purpose, TokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates a code and burns it. It returns ErrCodeInvalid
// for anything that is not an unused, unexpired match; the used
// flag flips atomically with the validation so a code can be spent
// exactly once.
func (e *OTPEngine) Consume(ctx context.Context, email, code string, purpose model.Purpose) error {
	ok, err := e.Codes.Consume(ctx, email, code, purpose, e.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeInvalid
	}
	return nil
}

// store supersedes outstanding codes for the pair, then inserts the
// new one.
func (e *OTPEngine) store(ctx context.Context, email, code string, purpose model.Purpose, ttl time.Duration) error {
	if err := e.Codes.InvalidateUnused(ctx, email, purpose); err != nil {
		return err
	}
	now := e.Now().UTC()
	return e.Codes.Insert(ctx, model.OneTimeCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
}
