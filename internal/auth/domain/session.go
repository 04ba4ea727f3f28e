package domain

import "time"

// Session is the per-account refresh slot. Exactly one row exists per
// account, created empty alongside the account. RefreshFingerprint holds the
// SHA-256 fingerprint of the single currently valid refresh credential, or
// "" when the account holds no session.
type Session struct {
	AccountID          string
	RefreshFingerprint string
	RefreshExpiresAt   *time.Time
	LastLogin          *time.Time
	LoggedIn           bool
	UpdatedAt          time.Time
}

// HasRefresh reports whether the slot currently holds a credential.
func (s Session) HasRefresh() bool { return s.RefreshFingerprint != "" }
