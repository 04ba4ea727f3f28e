package domain

import "time"

type Account struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // argon2 encoded
	Avatar       []byte // rendered initials image, image/svg+xml
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is what avatar rendering and listings show.
func (a Account) DisplayName() string {
	if a.FirstName == "" && a.LastName == "" {
		return a.Username
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Claim is one stored identity assertion. Accounts carry an ordered list of
// these; duplicates by type are allowed (one role claim per membership).
type Claim struct {
	Type  string
	Value string
}
