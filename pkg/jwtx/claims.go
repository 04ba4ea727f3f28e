package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type markers carried in the "typ" claim. Verifiers check these so a
// refresh credential can never be presented where an access credential is
// expected, even though both are signed with the same key.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Well-known identity claim types attached to access credentials.
const (
	ClaimSubject   = "sub"  // username of the account
	ClaimAccountID = "acct" // stable account identifier (ULID)
	ClaimRole      = "role" // one entry per role membership
)

// Claim is a single (type, value) identity assertion.
type Claim struct {
	Type  string `json:"typ"`
	Value string `json:"val"`
}

// ClaimSet is an ordered collection of identity assertions. Duplicate types
// are permitted (an account typically carries several role claims). Order is
// preserved through the credential payload but carries no meaning on read.
type ClaimSet []Claim

// First returns the value of the first claim with the given type, or "".
func (cs ClaimSet) First(typ string) string {
	for _, c := range cs {
		if c.Type == typ {
			return c.Value
		}
	}
	return ""
}

// Values returns every value recorded under the given type, in order.
func (cs ClaimSet) Values(typ string) []string {
	var out []string
	for _, c := range cs {
		if c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}

// Has reports whether the exact (type, value) pair is present.
func (cs ClaimSet) Has(typ, val string) bool {
	for _, c := range cs {
		if c.Type == typ && c.Value == val {
			return true
		}
	}
	return false
}

// Equal reports whether two claim sets carry the same pairs in the same order.
func (cs ClaimSet) Equal(other ClaimSet) bool {
	if len(cs) != len(other) {
		return false
	}
	for i := range cs {
		if cs[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy so the credential payload never shares
// backing storage with the caller's slice.
func (cs ClaimSet) Clone() ClaimSet {
	if cs == nil {
		return nil
	}
	out := make(ClaimSet, len(cs))
	copy(out, cs)
	return out
}

// Claims is the payload we embed in signed credentials. Identity is a JSON
// array rather than flattened object keys so that ordering and duplicate
// claim types survive the round trip.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType distinguishes access from refresh credentials.
	TokenType string `json:"typ,omitempty"`

	// Identity carries the account's claim set (access credentials only).
	Identity ClaimSet `json:"identity,omitempty"`
}

// NewAccessClaims builds the payload for an access credential.
func NewAccessClaims(identity ClaimSet, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return newClaims(TokenTypeAccess, identity.Clone(), issuer, audience, ttl, now)
}

// NewRefreshClaims builds the payload for a refresh credential. Refresh
// credentials carry no identity; the server-side session slot ties them to
// an account.
func NewRefreshClaims(issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return newClaims(TokenTypeRefresh, nil, issuer, audience, ttl, now)
}

func newClaims(typ string, identity ClaimSet, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenType: typ,
		Identity:  identity,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	for _, aud := range c.Audience {
		if aud == expected {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry enforces expiry with zero leeway: a credential is expired
// the instant its exp is no longer strictly in the future.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrExpired
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}

// ValidateTokenType checks the "typ" claim when a specific kind is expected.
func (c *Claims) ValidateTokenType(expected string) error {
	if expected == "" {
		return nil
	}
	if c.TokenType != expected {
		return ErrTokenType
	}
	return nil
}
