package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (account_id, refresh_fingerprint, logged_in, updated_at)
		VALUES (?, '', 0, CURRENT_TIMESTAMP)`,
		accountID,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, accountID string) (domain.Session, error) {
	var s domain.Session
	var expires, lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, refresh_fingerprint, refresh_expires_at, last_login, logged_in, updated_at
		FROM sessions
		WHERE account_id = ?`,
		accountID,
	).Scan(&s.AccountID, &s.RefreshFingerprint, &expires, &lastLogin, &s.LoggedIn, &s.UpdatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.RefreshExpiresAt = mapNullTimePtr(expires)
	s.LastLogin = mapNullTimePtr(lastLogin)
	return s, nil
}

func (r *sessionsRepo) SetRefresh(ctx context.Context, accountID, fingerprint string, expiresAt, lastLogin time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_fingerprint = ?, refresh_expires_at = ?, last_login = ?, logged_in = 1, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ?`,
		fingerprint, expiresAt.UTC(), lastLogin.UTC(), accountID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SwapRefresh is the compare-and-swap closing the rotation race: the UPDATE
// is keyed on the stored fingerprint, so of two concurrent rotations holding
// the same prior credential exactly one observes an affected row.
func (r *sessionsRepo) SwapRefresh(ctx context.Context, accountID, oldFingerprint, newFingerprint string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_fingerprint = ?, refresh_expires_at = ?, logged_in = 1, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND refresh_fingerprint = ?`,
		newFingerprint, expiresAt.UTC(), accountID, oldFingerprint,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSessionConflict
	}
	return nil
}

func (r *sessionsRepo) ClearSession(ctx context.Context, accountID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_fingerprint = '', refresh_expires_at = NULL, logged_in = 0, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ?`,
		accountID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sessionsRepo) ClearExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_fingerprint = '', refresh_expires_at = NULL, logged_in = 0, updated_at = CURRENT_TIMESTAMP
		WHERE refresh_fingerprint != '' AND refresh_expires_at IS NOT NULL AND refresh_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
