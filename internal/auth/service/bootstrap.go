package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/avatarx"
	"github.com/keywarden/keywarden/pkg/cryptox"
	"github.com/keywarden/keywarden/pkg/idx"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// BootstrapService seeds the administrator account on first run against an
// empty directory. When no password is configured one is generated and
// logged once, matching the original deployment flow.
type BootstrapService struct {
	Store         store.Store
	AdminUsername string
	AdminEmail    string
	AdminPassword string // empty means generate one
}

// SeedAdmin creates the admin account if the directory is empty. Returns
// true when seeding happened.
func (s *BootstrapService) SeedAdmin(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Accounts().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	password := s.AdminPassword
	generated := false
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return false, err
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return false, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Username:     s.AdminUsername,
		Email:        s.AdminEmail,
		PasswordHash: hash,
	}
	account.Avatar = avatarx.Render(account.DisplayName())

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}
		if err := tx.Sessions().CreateSession(ctx, account.ID); err != nil {
			return err
		}

		claims := []domain.Claim{
			{Type: jwtx.ClaimSubject, Value: account.Username},
			{Type: jwtx.ClaimAccountID, Value: account.ID},
		}
		for _, roleName := range []string{domain.RoleAdmin, domain.RoleUser} {
			role, err := tx.Roles().GetRoleByName(ctx, roleName)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrUnknownRole
				}
				return err
			}
			if err := tx.Roles().AddMembership(ctx, account.ID, role.ID); err != nil {
				return err
			}
			claims = append(claims, domain.Claim{Type: jwtx.ClaimRole, Value: role.Name})
		}

		for _, c := range claims {
			if err := tx.Claims().AppendClaim(ctx, account.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if generated {
		// Logged once so the operator can capture it; never stored in clear.
		l.Warn("seeded admin account with generated password",
			slog.String("username", account.Username),
			slog.String("password", password),
		)
	} else {
		l.Info("seeded admin account", slog.String("username", account.Username))
	}
	return true, nil
}
