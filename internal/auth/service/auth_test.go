package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store/drivers/sqlite"
	"github.com/keywarden/keywarden/pkg/cryptox"
	"github.com/keywarden/keywarden/pkg/idx"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "keywarden-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testEnv struct {
	store    *sqlite.Store
	signing  jwtx.SigningContext
	issuer   *jwtx.Issuer
	verifier *jwtx.Verifier
	auth     *AuthService
	accounts *AccountService
	roles    *RolesService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	signing := jwtx.SigningContext{
		Key:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "keywarden-test",
		Audience:   "clients",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	}
	issuer, err := jwtx.NewIssuer(signing)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier(signing)
	require.NoError(t, err)

	return &testEnv{
		store:    s,
		signing:  signing,
		issuer:   issuer,
		verifier: verifier,
		auth:     &AuthService{Issuer: issuer, Verifier: verifier, Store: s},
		accounts: &AccountService{Store: s, Issuer: issuer},
		roles:    &RolesService{Store: s},
	}
}

func registerAlice(t *testing.T, env *testEnv) domain.TokenPair {
	t.Helper()

	pair, err := env.accounts.Register(context.Background(), RegisterRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "correct-pw",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	return pair
}

func TestLoginIssuesPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	pair, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	require.Equal(t, "alice", pair.Username)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.True(t, pair.ExpiresAt.After(time.Now()))

	// The access credential carries the account's identity claims.
	claims, err := env.verifier.Verify(pair.AccessToken, jwtx.VerifyOptions{
		EnforceExpiry: true,
		ExpectType:    jwtx.TokenTypeAccess,
	})
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Identity.First(jwtx.ClaimSubject))
	require.Equal(t, pair.AccountID, claims.Identity.First(jwtx.ClaimAccountID))
	require.Equal(t, []string{domain.RoleUser}, claims.Identity.Values(jwtx.ClaimRole))

	// The slot holds the fingerprint of the refresh credential.
	sess, err := env.store.Sessions().GetSession(ctx, pair.AccountID)
	require.NoError(t, err)
	require.Equal(t, cryptox.FingerprintToken(pair.RefreshToken), sess.RefreshFingerprint)
	require.True(t, sess.LoggedIn)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	_, err := env.auth.Login(ctx, "alice", "wrong-pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "nobody", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginEvictsPriorSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	first, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	second, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	// The first refresh credential is dead the moment the second login lands.
	_, err = env.auth.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, ErrSessionMismatch)

	_, err = env.auth.Refresh(ctx, second.AccessToken, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	first, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	second, err := env.auth.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.AccountID, second.AccountID)

	// Single-slot policy: the consumed pair never works twice.
	_, err = env.auth.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, ErrSessionMismatch)

	// The rotated pair keeps working.
	_, err = env.auth.Refresh(ctx, second.AccessToken, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshAcceptsExpiredAccessCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := registerAlice(t, env)

	pair, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	// Mint an access credential that expired an hour ago, carrying alice's
	// identity, alongside the still-live refresh credential.
	past := time.Now().Add(-2 * time.Hour)
	staleIssuer, err := jwtx.NewIssuer(env.signing, jwtx.WithClock(func() time.Time { return past }))
	require.NoError(t, err)

	expiredAccess, _, err := staleIssuer.IssueAccess(jwtx.ClaimSet{
		{Type: jwtx.ClaimSubject, Value: "alice"},
		{Type: jwtx.ClaimAccountID, Value: registered.AccountID},
	})
	require.NoError(t, err)

	rotated, err := env.auth.Refresh(ctx, expiredAccess, pair.RefreshToken)
	require.NoError(t, err, "identity extraction must tolerate an expired access credential")
	require.NotEmpty(t, rotated.AccessToken)
}

func TestRefreshErrorTaxonomy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	pair, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	t.Run("garbage access credential is malformed", func(t *testing.T) {
		_, err := env.auth.Refresh(ctx, "not-a-token", pair.RefreshToken)
		require.ErrorIs(t, err, ErrMalformedAccess)
	})

	t.Run("refresh credential is not accepted as access", func(t *testing.T) {
		_, err := env.auth.Refresh(ctx, pair.RefreshToken, pair.RefreshToken)
		require.ErrorIs(t, err, ErrMalformedAccess)
	})

	t.Run("unknown account", func(t *testing.T) {
		ghost, _, err := env.issuer.IssueAccess(jwtx.ClaimSet{
			{Type: jwtx.ClaimSubject, Value: "ghost"},
		})
		require.NoError(t, err)

		_, err = env.auth.Refresh(ctx, ghost, pair.RefreshToken)
		require.ErrorIs(t, err, ErrUnknownAccount)
	})

	t.Run("mismatched refresh credential", func(t *testing.T) {
		other, _, err := env.issuer.IssueRefresh()
		require.NoError(t, err)

		_, err = env.auth.Refresh(ctx, pair.AccessToken, other)
		require.ErrorIs(t, err, ErrSessionMismatch)
	})

	t.Run("expired refresh credential is rejected", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		staleIssuer, err := jwtx.NewIssuer(env.signing, jwtx.WithClock(func() time.Time { return past }))
		require.NoError(t, err)

		staleRefresh, staleExp, err := staleIssuer.IssueRefresh()
		require.NoError(t, err)

		// Plant the stale credential in the slot so only its own expiry
		// check can reject it.
		require.NoError(t, env.store.Sessions().SetRefresh(ctx, pair.AccountID,
			cryptox.FingerprintToken(staleRefresh), staleExp, time.Now().UTC()))

		_, err = env.auth.Refresh(ctx, pair.AccessToken, staleRefresh)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestRevocationFinality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	pair, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	require.NoError(t, env.auth.Revoke(ctx, pair.AccountID))

	sess, err := env.store.Sessions().GetSession(ctx, pair.AccountID)
	require.NoError(t, err)
	require.False(t, sess.HasRefresh())
	require.False(t, sess.LoggedIn)

	_, err = env.auth.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionMismatch)

	// Idempotent
	require.NoError(t, env.auth.Revoke(ctx, pair.AccountID))

	require.ErrorIs(t, env.auth.Revoke(ctx, idx.New().String()), ErrUnknownAccount)
}

func TestRefreshReflectsRoleChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAlice(t, env)

	pair, err := env.auth.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	require.NoError(t, env.roles.AddToRole(ctx, pair.AccountID, domain.RoleAdmin))

	rotated, err := env.auth.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := env.verifier.Verify(rotated.AccessToken, jwtx.VerifyOptions{
		EnforceExpiry: true,
		ExpectType:    jwtx.TokenTypeAccess,
	})
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleUser, domain.RoleAdmin}, claims.Identity.Values(jwtx.ClaimRole),
		"rotation re-reads the identity so new roles take effect")
}
