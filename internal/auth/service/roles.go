package service

import (
	"context"
	"errors"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

var (
	// ErrUnknownRole is returned for a role name the system does not seed.
	ErrUnknownRole = errors.New("unknown_role")

	// ErrAlreadyInRole is returned when adding a membership the account holds.
	ErrAlreadyInRole = errors.New("already_in_role")

	// ErrNotInRole is returned when removing a membership the account lacks.
	ErrNotInRole = errors.New("not_in_role")
)

// RolesService manages role memberships. Membership rows and role claims are
// kept in sync inside one transaction so a credential minted at any moment
// reflects a consistent view.
type RolesService struct {
	Store store.Store
}

// List returns every role in the system.
func (s *RolesService) List(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx)
}

// Get returns a single role by id.
func (s *RolesService) Get(ctx context.Context, id string) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, ErrUnknownRole
		}
		return domain.Role{}, err
	}
	return role, nil
}

// ListForAccount returns the roles an account is a member of.
func (s *RolesService) ListForAccount(ctx context.Context, accountID string) ([]domain.Role, error) {
	return s.Store.Roles().ListAccountRoles(ctx, accountID)
}

// AddToRole links the account to the role and appends the matching role claim.
func (s *RolesService) AddToRole(ctx context.Context, accountID, roleName string) error {
	log := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Accounts().GetAccountByID(ctx, accountID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownAccount
			}
			return err
		}

		role, err := tx.Roles().GetRoleByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownRole
			}
			return err
		}

		if err := tx.Roles().AddMembership(ctx, accountID, role.ID); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAlreadyInRole
			}
			return err
		}

		if err := tx.Claims().AppendClaim(ctx, accountID,
			domain.Claim{Type: jwtx.ClaimRole, Value: role.Name}); err != nil {
			return err
		}

		log.Info("role granted", "account_id", accountID, "role", role.Name)
		return nil
	})
}

// RemoveFromRole unlinks the account from the role and drops the matching
// role claim.
func (s *RolesService) RemoveFromRole(ctx context.Context, accountID, roleName string) error {
	log := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Accounts().GetAccountByID(ctx, accountID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownAccount
			}
			return err
		}

		role, err := tx.Roles().GetRoleByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownRole
			}
			return err
		}

		if err := tx.Roles().RemoveMembership(ctx, accountID, role.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotInRole
			}
			return err
		}

		if err := tx.Claims().RemoveClaim(ctx, accountID,
			domain.Claim{Type: jwtx.ClaimRole, Value: role.Name}); err != nil &&
			!errors.Is(err, store.ErrNotFound) {
			return err
		}

		log.Info("role withdrawn", "account_id", accountID, "role", role.Name)
		return nil
	})
}
