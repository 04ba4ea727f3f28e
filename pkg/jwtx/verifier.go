package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer    = errors.New("jwtx: issuer mismatch")
	ErrAudience  = errors.New("jwtx: audience mismatch")
	ErrExpired   = errors.New("jwtx: token expired")
	ErrTokenType = errors.New("jwtx: unexpected token type")
)

// VerifyOptions captures the per-call expectations of Verify.
type VerifyOptions struct {
	// EnforceExpiry controls the exp check. It is relaxed in exactly one
	// place: recovering the identity from an expired access credential to
	// authorize rotation. Every other check still runs.
	EnforceExpiry bool

	// ExpectType, when set, requires a matching "typ" claim
	// (TokenTypeAccess or TokenTypeRefresh).
	ExpectType string
}

// Verifier validates credentials minted by an Issuer sharing the same
// SigningContext.
type Verifier struct {
	ctx SigningContext
	now func() time.Time
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock replaces the wall clock used for the expiry check.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier validates the signing context and returns a Verifier bound to it.
func NewVerifier(ctx SigningContext, opts ...VerifierOption) (*Verifier, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	v := &Verifier{ctx: ctx, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks, in order: structural parse; algorithm header is exactly
// HS256 (anything else, "none" included, is rejected before signature
// verification); signature under the shared key; issuer; audience; token
// type; expiry when enforced. On success the embedded claims are returned.
func (v *Verifier) Verify(token string, opts VerifyOptions) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithoutClaimsValidation(), // claim checks below, with our taxonomy
	)

	// Algorithm pinning happens in the keyfunc rather than WithValidMethods
	// so a substituted algorithm surfaces as ErrAlgMismatch instead of a
	// generic signature failure.
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrAlgMismatch
		}
		return v.ctx.Key, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.ctx.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.ctx.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTokenType(opts.ExpectType); err != nil {
		return Claims{}, err
	}
	if opts.EnforceExpiry {
		if err := claims.ValidateExpiry(v.now()); err != nil {
			return Claims{}, err
		}
	}

	return *claims, nil
}

// classifyParseError maps golang-jwt parse failures onto our sentinel set so
// callers can switch on errors.Is without importing the jwt package.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
