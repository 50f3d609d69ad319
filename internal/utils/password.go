package utils

import "golang.org/x/crypto/bcrypt"

// HistoryLimit caps how many prior password hashes are kept per
// account for reuse checks.
const HistoryLimit = 5

// ReuseVerdict reports why a candidate password was rejected by
// CheckReuse, or ReuseOK when it may be used.
type ReuseVerdict int

const (
	ReuseOK            ReuseVerdict = iota
	ReuseSameAsCurrent              // matches the account's current password
	ReuseRecent                     // matches one of the last HistoryLimit passwords
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckReuse rejects a candidate password that matches the current
// hash or any hash in the history. A nil or empty history is not an
// error; newly created and legacy accounts simply have nothing to
// compare against.
func CheckReuse(plain, currentHash string, history []string) ReuseVerdict {
	if VerifyPassword(currentHash, plain) {
		return ReuseSameAsCurrent
	}
	for _, old := range history {
		if VerifyPassword(old, plain) {
			return ReuseRecent
		}
	}
	return ReuseOK
}

// RotateHistory prepends the outgoing hash to the history and trims
// it to HistoryLimit entries, most recent first.
func RotateHistory(history []string, outgoingHash string) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, outgoingHash)
	out = append(out, history...)
	if len(out) > HistoryLimit {
		out = out[:HistoryLimit]
	}
	return out
}
