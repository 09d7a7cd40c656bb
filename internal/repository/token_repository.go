package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
type TokenRepo struct {
	DB   *sql.DB
	prov *Provisioner
}

func NewTokenRepo(db *sql.DB, p *Provisioner) *TokenRepo { return &TokenRepo{DB: db, prov: p} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return r.prov.withRepair(ctx, "store refresh", func() error {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
			userID, tokenHash, exp.UTC())
		return err
	})
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.prov.withRepair(ctx, "validate refresh", func() error {
		return r.DB.QueryRowContext(ctx,
			"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
			tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	})
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.prov.withRepair(ctx, "revoke refresh", func() error {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
			time.Now().UTC(), tokenHash)
		return err
	})
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.prov.withRepair(ctx, "revoke all refresh", func() error {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
			time.Now().UTC(), userID)
		return err
	})
}
