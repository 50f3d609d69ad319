package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned for every session token failure: bad
// signature, wrong signing method, malformed payload or expiry. The
// caller is deliberately not told which one it was.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the decoded payload of an access token. Refresh
// tokens carry only the AccountID; the remaining fields stay zero
// and are re-read from the database when the pair is re-issued.
type SessionClaims struct {
	AccountID     uint64
	Role          string
	InstitutionID uint64
	Email         string
}

// SessionPair bundles the two bearer credentials returned on login:
// a short-lived access token carrying the full claim set and a
// longer-lived refresh token carrying only the account ID. Neither
// is persisted server-side; validity is signature plus expiry.
type SessionPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// NewSessionPair signs an HS256 access token with accessSecret and a
// refresh token with the independent refreshSecret. The access token
// embeds sub, role, institution_id and email; the refresh token only
// sub. TTLs are passed in from config (24h access, 7d refresh by
// default).
func NewSessionPair(accessSecret, refreshSecret string, claims SessionClaims, accessTTL, refreshTTL time.Duration) (SessionPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            claims.AccountID,
		"role":           claims.Role,
		"institution_id": claims.InstitutionID,
		"email":          claims.Email,
		"exp":            accessExp.Unix(),
		"iat":            now.Unix(),
	})
	signedAccess, err := access.SignedString([]byte(accessSecret))
	if err != nil {
		return SessionPair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": claims.AccountID,
		"exp": refreshExp.Unix(),
		"iat": now.Unix(),
	})
	signedRefresh, err := refresh.SignedString([]byte(refreshSecret))
	if err != nil {
		return SessionPair{}, err
	}

	return SessionPair{
		AccessToken:      signedAccess,
		AccessExpiresAt:  accessExp,
		RefreshToken:     signedRefresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature and expiry against the access secret
// and returns the embedded claims. Every failure collapses into
// ErrInvalidToken.
func VerifyAccess(secret, raw string) (SessionClaims, error) {
	return verify(secret, raw)
}

// VerifyRefresh is VerifyAccess against the refresh secret. Only the
// AccountID claim is meaningful on the result.
func VerifyRefresh(secret, raw string) (SessionClaims, error) {
	return verify(secret, raw)
}

func verify(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}
	var out SessionClaims
	sub, ok := mc["sub"].(float64)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}
	out.AccountID = uint64(sub)
	if v, ok := mc["role"].(string); ok {
		out.Role = v
	}
	if v, ok := mc["institution_id"].(float64); ok {
		out.InstitutionID = uint64(v)
	}
	if v, ok := mc["email"].(string); ok {
		out.Email = v
	}
	return out, nil
}
