package service

import (
	"context"
	"errors"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/metrics"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/cryptox"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers bad username/password pairs. Deliberately
	// indistinguishable between "no such account" and "wrong password".
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrUnknownAccount is returned when the account named by a credential
	// no longer exists.
	ErrUnknownAccount = errors.New("unknown_account")

	// ErrMalformedAccess covers an access credential that fails signature,
	// issuer, audience or type checks during rotation. Expiry alone does not
	// trigger it.
	ErrMalformedAccess = errors.New("malformed_access_token")

	// ErrSessionMismatch is returned when the presented refresh credential
	// does not match the account's stored slot, including an empty slot and
	// a rotation lost to a concurrent racer.
	ErrSessionMismatch = errors.New("session_mismatch")

	// ErrInvalidRefresh is returned when the presented refresh credential
	// fails its own verification (signature, type, expiry).
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
)

// AuthService orchestrates the credential lifecycle: Login, Refresh, Revoke.
type AuthService struct {
	Issuer   *jwtx.Issuer
	Verifier *jwtx.Verifier
	Store    store.Store
	Metrics  *metrics.Metrics
}

// Login verifies the password and mints a fresh access+refresh pair,
// overwriting the account's refresh slot. Logging in terminates any other
// live session for the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.Login(metrics.OutcomeDenied)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		s.Metrics.Login(metrics.OutcomeError)
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		log.Info("login rejected", "username", username)
		s.Metrics.Login(metrics.OutcomeDenied)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		identity, err := loadIdentity(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		minted, refreshExp, err := s.mintPair(account, identity)
		if err != nil {
			return err
		}

		if err := tx.Sessions().SetRefresh(ctx, account.ID,
			cryptox.FingerprintToken(minted.RefreshToken), refreshExp, time.Now().UTC()); err != nil {
			return err
		}

		pair = minted
		return nil
	})
	if err != nil {
		s.Metrics.Login(metrics.OutcomeError)
		return domain.TokenPair{}, err
	}

	log.Info("login succeeded", "username", username, "account_id", account.ID)
	s.Metrics.Login(metrics.OutcomeOK)
	return pair, nil
}

// Refresh rotates a credential pair. The presented access credential may be
// expired; every other check on it still applies. The refresh credential
// must match the stored slot exactly and verify on its own, expiry included.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	// Identity extraction: expiry relaxed, nothing else.
	claims, err := s.Verifier.Verify(accessToken, jwtx.VerifyOptions{
		EnforceExpiry: false,
		ExpectType:    jwtx.TokenTypeAccess,
	})
	if err != nil {
		s.Metrics.Refresh(metrics.OutcomeDenied)
		return domain.TokenPair{}, ErrMalformedAccess
	}

	username := claims.Identity.First(jwtx.ClaimSubject)
	if username == "" {
		s.Metrics.Refresh(metrics.OutcomeDenied)
		return domain.TokenPair{}, ErrMalformedAccess
	}

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.Refresh(metrics.OutcomeNotFound)
			return domain.TokenPair{}, ErrUnknownAccount
		}
		s.Metrics.Refresh(metrics.OutcomeError)
		return domain.TokenPair{}, err
	}

	presented := cryptox.FingerprintToken(refreshToken)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err := tx.Sessions().GetSession(ctx, account.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrSessionMismatch
			}
			return err
		}
		if !sess.HasRefresh() || sess.RefreshFingerprint != presented {
			return ErrSessionMismatch
		}

		// The stored slot may only hold a credential we minted, but its
		// signature and expiry are still checked before trusting it.
		if _, err := s.Verifier.Verify(refreshToken, jwtx.VerifyOptions{
			EnforceExpiry: true,
			ExpectType:    jwtx.TokenTypeRefresh,
		}); err != nil {
			return ErrInvalidRefresh
		}

		// Re-read the identity so role changes since login take effect.
		identity, err := loadIdentity(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		minted, refreshExp, err := s.mintPair(account, identity)
		if err != nil {
			return err
		}

		if err := tx.Sessions().SwapRefresh(ctx, account.ID, presented,
			cryptox.FingerprintToken(minted.RefreshToken), refreshExp); err != nil {
			if errors.Is(err, store.ErrSessionConflict) {
				return ErrSessionMismatch
			}
			return err
		}

		pair = minted
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionMismatch):
			s.Metrics.Refresh(metrics.OutcomeMismatch)
		case errors.Is(err, ErrInvalidRefresh):
			s.Metrics.Refresh(metrics.OutcomeDenied)
		default:
			s.Metrics.Refresh(metrics.OutcomeError)
		}
		return domain.TokenPair{}, err
	}

	log.Info("credentials rotated", "account_id", account.ID)
	s.Metrics.Refresh(metrics.OutcomeOK)
	return pair, nil
}

// Revoke clears the caller's refresh slot and marks the account logged out.
// Idempotent: revoking an already-revoked session succeeds.
func (s *AuthService) Revoke(ctx context.Context, accountID string) error {
	log := slogx.FromContext(ctx)

	if _, err := s.Store.Accounts().GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.Revoke(metrics.OutcomeNotFound)
			return ErrUnknownAccount
		}
		s.Metrics.Revoke(metrics.OutcomeError)
		return err
	}

	if err := s.Store.Sessions().ClearSession(ctx, accountID); err != nil {
		s.Metrics.Revoke(metrics.OutcomeError)
		return err
	}

	log.Info("session revoked", "account_id", accountID)
	s.Metrics.Revoke(metrics.OutcomeOK)
	return nil
}

// mintPair issues a new access+refresh pair for the account.
func (s *AuthService) mintPair(account domain.Account, identity jwtx.ClaimSet) (domain.TokenPair, time.Time, error) {
	access, accessExp, err := s.Issuer.IssueAccess(identity)
	if err != nil {
		return domain.TokenPair{}, time.Time{}, err
	}
	refresh, refreshExp, err := s.Issuer.IssueRefresh()
	if err != nil {
		return domain.TokenPair{}, time.Time{}, err
	}

	return domain.TokenPair{
		AccountID:    account.ID,
		Username:     account.Username,
		AccessToken:  access,
		ExpiresAt:    accessExp,
		RefreshToken: refresh,
	}, refreshExp, nil
}

// loadIdentity reads the account's stored claim rows into a ClaimSet,
// preserving insertion order.
func loadIdentity(ctx context.Context, s store.Store, accountID string) (jwtx.ClaimSet, error) {
	rows, err := s.Claims().ListClaims(ctx, accountID)
	if err != nil {
		return nil, err
	}

	identity := make(jwtx.ClaimSet, len(rows))
	for i, c := range rows {
		identity[i] = jwtx.Claim{Type: c.Type, Value: c.Value}
	}
	return identity, nil
}
