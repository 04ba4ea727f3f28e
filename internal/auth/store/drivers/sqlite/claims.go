package sqlite

import (
	"context"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
)

type claimsRepo struct {
	db dbtx
}

func (r *claimsRepo) ListClaims(ctx context.Context, accountID string) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT claim_type, claim_value
		FROM account_claims
		WHERE account_id = ?
		ORDER BY position ASC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *claimsRepo) AppendClaim(ctx context.Context, accountID string, c domain.Claim) error {
	// Position is the next slot after the account's current claims; the
	// coalesce covers the first claim.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_claims (account_id, position, claim_type, claim_value)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM account_claims WHERE account_id = ?), ?, ?)`,
		accountID, accountID, c.Type, c.Value,
	)
	return mapConstraint(err)
}

func (r *claimsRepo) RemoveClaim(ctx context.Context, accountID string, c domain.Claim) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM account_claims
		WHERE account_id = ? AND claim_type = ? AND claim_value = ?`,
		accountID, c.Type, c.Value,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
