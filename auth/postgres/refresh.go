package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/pg"
)

// RefreshTokenStorage implements auth.RefreshTokenStore on the
// refresh_tokens table. Rows are never deleted while live; revocation
// flips a flag so the registry keeps a record of every session ever
// issued.
type RefreshTokenStorage struct{}

// NewRefreshTokenStorage creates the postgres refresh token storage.
func NewRefreshTokenStorage() *RefreshTokenStorage {
	return &RefreshTokenStorage{}
}

// Create implements auth.RefreshTokenStore.
func (s *RefreshTokenStorage) Create(ctx context.Context, q pg.Querier, userID uuid.UUID, token string, createdAt, expiresAt time.Time) error {
	_, err := q.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, revoked, created_at, expires_at) VALUES ($1, $2, false, $3, $4)`,
		token, userID, createdAt, expiresAt,
	)
	return err
}

// Get implements auth.RefreshTokenStore.
func (s *RefreshTokenStorage) Get(ctx context.Context, q pg.Querier, token string) (*auth.RefreshToken, error) {
	var t auth.RefreshToken
	err := q.QueryRow(ctx,
		`SELECT token, user_id, revoked, created_at, expires_at FROM refresh_tokens WHERE token = $1`,
		token,
	).Scan(&t.Token, &t.UserID, &t.Revoked, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &t, nil
}

// Revoke implements auth.RefreshTokenStore. The conditional UPDATE is
// the serialization point for rotation: two transactions spending the
// same token both block on the row, and only the first to commit
// matches NOT revoked.
func (s *RefreshTokenStorage) Revoke(ctx context.Context, q pg.Querier, token string) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE token = $1 AND NOT revoked`,
		token,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeAllForUser implements auth.RefreshTokenStore.
func (s *RefreshTokenStorage) RevokeAllForUser(ctx context.Context, q pg.Querier, userID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked`,
		userID,
	)
	return err
}
