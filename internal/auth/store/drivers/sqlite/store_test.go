package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/internal/auth/store/drivers/sqlite"
	"github.com/keywarden/keywarden/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func createAccount(t *testing.T, s *sqlite.Store, username string) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	}
	ctx := context.Background()
	require.NoError(t, s.Accounts().CreateAccount(ctx, a))
	require.NoError(t, s.Sessions().CreateSession(ctx, a.ID))
	return a
}

func TestAccountUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createAccount(t, s, "alice")

	dup := domain.Account{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
	}
	err := s.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	dup.Username = "alice2"
	dup.Email = "alice@example.com"
	err = s.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestAccountLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")

	byID, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)

	byName, err := s.Accounts().GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, a.ID, byName.ID)

	byEmail, err := s.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, byEmail.ID)

	_, err = s.Accounts().GetAccountByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClaimsOrderPreserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")

	want := []domain.Claim{
		{Type: "sub", Value: "alice"},
		{Type: "role", Value: "Admin"},
		{Type: "role", Value: "User"},
	}
	for _, c := range want {
		require.NoError(t, s.Claims().AppendClaim(ctx, a.ID, c))
	}

	got, err := s.Claims().ListClaims(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, want, got, "insertion order and duplicates must survive")

	require.NoError(t, s.Claims().RemoveClaim(ctx, a.ID, domain.Claim{Type: "role", Value: "Admin"}))
	got, err = s.Claims().ListClaims(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []domain.Claim{want[0], want[2]}, got)

	err = s.Claims().RemoveClaim(ctx, a.ID, domain.Claim{Type: "role", Value: "Admin"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoleMemberships(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")

	admin, err := s.Roles().GetRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	user, err := s.Roles().GetRoleByName(ctx, domain.RoleUser)
	require.NoError(t, err)

	require.NoError(t, s.Roles().AddMembership(ctx, a.ID, user.ID))
	require.ErrorIs(t, s.Roles().AddMembership(ctx, a.ID, user.ID), store.ErrAlreadyExists)

	require.NoError(t, s.Roles().AddMembership(ctx, a.ID, admin.ID))
	roles, err := s.Roles().ListAccountRoles(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	require.NoError(t, s.Roles().RemoveMembership(ctx, a.ID, admin.ID))
	require.ErrorIs(t, s.Roles().RemoveMembership(ctx, a.ID, admin.ID), store.ErrNotFound)
}

func TestSessionSlotLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")
	now := time.Now().UTC()

	sess, err := s.Sessions().GetSession(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, sess.HasRefresh())
	require.False(t, sess.LoggedIn)

	require.NoError(t, s.Sessions().SetRefresh(ctx, a.ID, "fp-1", now.Add(time.Hour), now))

	sess, err = s.Sessions().GetSession(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-1", sess.RefreshFingerprint)
	require.True(t, sess.LoggedIn)
	require.NotNil(t, sess.LastLogin)

	require.NoError(t, s.Sessions().ClearSession(ctx, a.ID))
	sess, err = s.Sessions().GetSession(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, sess.HasRefresh())
	require.False(t, sess.LoggedIn)

	// Idempotent clear
	require.NoError(t, s.Sessions().ClearSession(ctx, a.ID))
}

func TestSwapRefreshIsCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")
	now := time.Now().UTC()

	require.NoError(t, s.Sessions().SetRefresh(ctx, a.ID, "fp-1", now.Add(time.Hour), now))

	// First rotation wins.
	require.NoError(t, s.Sessions().SwapRefresh(ctx, a.ID, "fp-1", "fp-2", now.Add(2*time.Hour)))

	// Second rotation still holding fp-1 loses.
	err := s.Sessions().SwapRefresh(ctx, a.ID, "fp-1", "fp-3", now.Add(2*time.Hour))
	require.ErrorIs(t, err, store.ErrSessionConflict)

	sess, err := s.Sessions().GetSession(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-2", sess.RefreshFingerprint)
}

func TestClearExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := createAccount(t, s, "stale")
	fresh := createAccount(t, s, "fresh")
	now := time.Now().UTC()

	require.NoError(t, s.Sessions().SetRefresh(ctx, stale.ID, "fp-old", now.Add(-time.Minute), now.Add(-time.Hour)))
	require.NoError(t, s.Sessions().SetRefresh(ctx, fresh.ID, "fp-new", now.Add(time.Hour), now))

	n, err := s.Sessions().ClearExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	sess, err := s.Sessions().GetSession(ctx, stale.ID)
	require.NoError(t, err)
	require.False(t, sess.HasRefresh())

	sess, err = s.Sessions().GetSession(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-new", sess.RefreshFingerprint)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "alice")

	sentinel := store.ErrSessionConflict
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Claims().AppendClaim(ctx, a.ID, domain.Claim{Type: "sub", Value: "alice"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	claims, err := s.Claims().ListClaims(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, claims, "rolled-back claim must not persist")
}
