package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/avatarx"
	"github.com/keywarden/keywarden/pkg/cryptox"
	"github.com/keywarden/keywarden/pkg/idx"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

var (
	// ErrInvalidInput covers malformed registration or update requests:
	// bad email, empty username or password.
	ErrInvalidInput = errors.New("invalid_input")

	// ErrDuplicateAccount is returned when the username or email is taken.
	ErrDuplicateAccount = errors.New("duplicate_account")

	// ErrForbidden is returned when a caller touches another account's
	// profile or password.
	ErrForbidden = errors.New("forbidden")
)

// RegisterRequest carries the fields a new account is created from.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountService implements the account directory: registration, lookups,
// profile and password updates.
type AccountService struct {
	Store  store.Store
	Issuer *jwtx.Issuer
}

// Register creates the account with its session slot, default User role,
// identity claims and generated avatar, then logs the account in and returns
// the minted pair.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		return domain.TokenPair{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return domain.TokenPair{}, ErrInvalidInput
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.TokenPair{}, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	account.Avatar = avatarx.Render(account.DisplayName())

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateAccount
			}
			return err
		}
		if err := tx.Sessions().CreateSession(ctx, account.ID); err != nil {
			return err
		}

		userRole, err := tx.Roles().GetRoleByName(ctx, domain.RoleUser)
		if err != nil {
			return err
		}
		if err := tx.Roles().AddMembership(ctx, account.ID, userRole.ID); err != nil {
			return err
		}

		initial := []domain.Claim{
			{Type: jwtx.ClaimSubject, Value: account.Username},
			{Type: jwtx.ClaimAccountID, Value: account.ID},
			{Type: jwtx.ClaimRole, Value: userRole.Name},
		}
		for _, c := range initial {
			if err := tx.Claims().AppendClaim(ctx, account.ID, c); err != nil {
				return err
			}
		}

		// Auto-login: mint the pair and fill the fresh slot.
		identity, err := loadIdentity(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		access, accessExp, err := s.Issuer.IssueAccess(identity)
		if err != nil {
			return err
		}
		refresh, refreshExp, err := s.Issuer.IssueRefresh()
		if err != nil {
			return err
		}
		if err := tx.Sessions().SetRefresh(ctx, account.ID,
			cryptox.FingerprintToken(refresh), refreshExp, time.Now().UTC()); err != nil {
			return err
		}

		pair = domain.TokenPair{
			AccountID:    account.ID,
			Username:     account.Username,
			AccessToken:  access,
			ExpiresAt:    accessExp,
			RefreshToken: refresh,
		}
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("account registered", "username", account.Username, "account_id", account.ID)
	return pair, nil
}

// GetByID fetches an account by its ULID.
func (s *AccountService) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.Store.Accounts().GetAccountByID(ctx, id)
}

// GetByUsername fetches an account by username.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	return s.Store.Accounts().GetAccountByUsername(ctx, username)
}

// GetByEmail fetches an account by email.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.Store.Accounts().GetAccountByEmail(ctx, email)
}

// List returns every account in the directory.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.Store.Accounts().ListAccounts(ctx)
}

// UpdateProfile changes the name fields of the caller's own account. The
// avatar is regenerated from the new display name.
func (s *AccountService) UpdateProfile(ctx context.Context, caller, username, firstName, lastName string) (domain.Account, error) {
	if caller != username {
		return domain.Account{}, ErrForbidden
	}

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		return domain.Account{}, err
	}

	account.FirstName = strings.TrimSpace(firstName)
	account.LastName = strings.TrimSpace(lastName)
	account.Avatar = avatarx.Render(account.DisplayName())

	if err := s.Store.Accounts().UpdateProfile(ctx, account.ID,
		account.FirstName, account.LastName, account.Avatar); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *AccountService) ChangePassword(ctx context.Context, caller, username, oldPassword, newPassword string) error {
	if caller != username {
		return ErrForbidden
	}
	if newPassword == "" {
		return ErrInvalidInput
	}

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(oldPassword, account.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Accounts().UpdatePasswordHash(ctx, account.ID, hash)
}
