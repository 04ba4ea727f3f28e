package jwtx

import (
	"errors"
	"fmt"
	"time"
)

// MinKeyBytes is the smallest signing key we accept for HMAC-SHA-256. A
// shorter key is a configuration error and the service must refuse to start.
const MinKeyBytes = 32

// SigningContext holds the shared secret and the claim expectations every
// credential is minted and verified against. It is immutable process-wide
// configuration: build it once at startup, validate it, and pass it to the
// Issuer and Verifier constructors.
type SigningContext struct {
	Key        []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ErrConfig marks a SigningContext that must never reach serving traffic.
var ErrConfig = errors.New("jwtx: invalid signing configuration")

// Validate reports whether the context is usable. Failures here are fatal at
// startup, never per-request conditions.
func (c SigningContext) Validate() error {
	if len(c.Key) < MinKeyBytes {
		return fmt.Errorf("%w: signing key must be at least %d bytes, got %d", ErrConfig, MinKeyBytes, len(c.Key))
	}
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer is required", ErrConfig)
	}
	if c.Audience == "" {
		return fmt.Errorf("%w: audience is required", ErrConfig)
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("%w: access lifetime must be positive", ErrConfig)
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: refresh lifetime must be positive", ErrConfig)
	}
	return nil
}
