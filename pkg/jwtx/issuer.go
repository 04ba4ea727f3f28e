package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints signed credentials under a single HMAC-SHA-256 key. The same
// key and SigningContext serve both issuance and verification; there is
// deliberately no second key for the request-authentication path.
type Issuer struct {
	ctx SigningContext
	now func() time.Time
}

// IssuerOption customises an Issuer, mainly for deterministic tests.
type IssuerOption func(*Issuer)

// WithClock replaces the wall clock used to stamp iat/exp.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates the signing context and returns an Issuer bound to it.
func NewIssuer(ctx SigningContext, opts ...IssuerOption) (*Issuer, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	i := &Issuer{ctx: ctx, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAccess mints an access credential embedding the given claim set.
// Pure apart from the clock: no state is recorded anywhere.
func (i *Issuer) IssueAccess(identity ClaimSet) (token string, expiresAt time.Time, err error) {
	return i.sign(NewAccessClaims(identity, i.ctx.Issuer, i.ctx.Audience, i.ctx.AccessTTL, i.now()))
}

// IssueRefresh mints a refresh credential: same key and construction as an
// access credential, empty identity, refresh lifetime, typ=refresh.
func (i *Issuer) IssueRefresh() (token string, expiresAt time.Time, err error) {
	return i.sign(NewRefreshClaims(i.ctx.Issuer, i.ctx.Audience, i.ctx.RefreshTTL, i.now()))
}

func (i *Issuer) sign(claims Claims) (string, time.Time, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.ctx.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}
