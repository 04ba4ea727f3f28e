package store

import (
	"context"
	"errors"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrSessionConflict reports a compare-and-swap on the refresh slot that
	// observed a different stored fingerprint. The losing racer of two
	// concurrent rotations gets this.
	ErrSessionConflict = errors.New("store: session slot changed concurrently")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and let a Tx expose the
// same surface inside a transaction.
type Store interface {
	Accounts() Accounts
	Claims() Claims
	Roles() Roles
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Preferred over Tx for multi-step writes such as
	// registration and refresh rotation.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the username or email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// ListAccounts returns all accounts ordered by creation (oldest first).
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// UpdateProfile mutates the name fields and avatar, bumping updated_at.
	UpdateProfile(ctx context.Context, id, firstName, lastName string, avatar []byte) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id, newHash string) error

	// IsEmpty reports whether the directory has no accounts yet.
	IsEmpty(ctx context.Context) (bool, error)
}

type Claims interface {
	// ListClaims returns the account's identity claims in insertion order.
	ListClaims(ctx context.Context, accountID string) ([]domain.Claim, error)

	// AppendClaim adds a claim after the account's existing ones.
	AppendClaim(ctx context.Context, accountID string, c domain.Claim) error

	// RemoveClaim deletes the claim matching type and value exactly.
	// Returns ErrNotFound when no such claim exists.
	RemoveClaim(ctx context.Context, accountID string, c domain.Claim) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// ListAccountRoles returns the roles an account is a member of.
	ListAccountRoles(ctx context.Context, accountID string) ([]domain.Role, error)

	// AddMembership links an account to a role. ErrAlreadyExists when the
	// account already holds it.
	AddMembership(ctx context.Context, accountID, roleID string) error

	// RemoveMembership unlinks an account from a role. ErrNotFound when the
	// account does not hold it.
	RemoveMembership(ctx context.Context, accountID, roleID string) error
}

type Sessions interface {
	// CreateSession inserts the empty refresh slot for a new account.
	CreateSession(ctx context.Context, accountID string) error

	GetSession(ctx context.Context, accountID string) (domain.Session, error)

	// SetRefresh unconditionally overwrites the slot. Used by Login and
	// Register, where holding the password is authority enough to evict any
	// prior session.
	SetRefresh(ctx context.Context, accountID, fingerprint string, expiresAt, lastLogin time.Time) error

	// SwapRefresh overwrites the slot only when it still holds
	// oldFingerprint. Returns ErrSessionConflict otherwise. This is the
	// atomic compare-and-swap that serializes concurrent rotations.
	SwapRefresh(ctx context.Context, accountID, oldFingerprint, newFingerprint string, expiresAt time.Time) error

	// ClearSession empties the slot and marks the account logged out.
	// Idempotent: clearing an empty slot succeeds.
	ClearSession(ctx context.Context, accountID string) error

	// ClearExpired empties every slot whose refresh credential expired
	// before now. Housekeeping; returns the number of slots cleared.
	ClearExpired(ctx context.Context, now time.Time) (int64, error)
}
