package domain

import "time"

// TokenPair is what Login, Refresh and Register return: the short-lived
// access credential plus the refresh credential that can rotate it.
type TokenPair struct {
	AccountID    string    `json:"account_id"`
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
}
