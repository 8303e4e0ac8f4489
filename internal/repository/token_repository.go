package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/quickeats/quickeats/internal/model"
)

// TokenRepo persists refresh tokens (single 'token_hash' column; the raw
// value never reaches the database).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// getByHash loads a refresh token row. Unknown hashes map to
// ErrRefreshNotFound.
func (r *TokenRepo) getByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		rt      model.RefreshToken
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &revoked, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrRefreshNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		rt.RevokedAt = &revoked.Time
	}
	return rt, nil
}

// ConsumeAndRotate atomically consumes a refresh token and returns its
// owner. The conditional UPDATE is the linearization point: of two
// concurrent calls with the same hash, exactly one sees RowsAffected=1;
// the loser gets ErrRefreshRevoked. The preceding lookup only classifies
// the failure for tokens that were already dead.
func (r *TokenRepo) ConsumeAndRotate(ctx context.Context, tokenHash string) (uint64, error) {
	rt, err := r.getByHash(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if rt.RevokedAt != nil {
		return 0, ErrRefreshRevoked
	}
	if time.Now().UTC().After(rt.ExpiresAt) {
		return 0, ErrRefreshExpired
	}

	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()",
		tokenHash)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Lost a race with another rotation or a logout.
		return 0, ErrRefreshRevoked
	}
	return rt.UserID, nil
}

// Revoke marks a token as revoked. Unknown tokens are an error rather than
// a silent success so a client presenting garbage at logout hears about it.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.getByHash(ctx, tokenHash); err != nil {
			return err
		}
		return ErrRefreshRevoked
	}
	return nil
}

// RevokeAllForUser revokes all of a user's active tokens. It backs the
// bearer-only logout path, which ends every session of the caller.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
