package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/pg"
)

// TokenStorage implements auth.TokenStore on the ephemeral_tokens
// table. Lookups that lead to state changes lock the row with
// FOR UPDATE, so two transactions consuming the same secret serialize
// and exactly one of them wins.
type TokenStorage struct{}

// NewTokenStorage creates the postgres ephemeral token storage.
func NewTokenStorage() *TokenStorage {
	return &TokenStorage{}
}

const insertTokenQuery = `
INSERT INTO ephemeral_tokens (id, kind, user_id, phone, token, attempts, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`

const selectTokenForUpdateQuery = `
SELECT id, kind, user_id, phone, token, attempts, created_at, expires_at, used_at
FROM ephemeral_tokens
WHERE kind = $1 AND token = $2
FOR UPDATE`

const selectActiveOTPQuery = `
SELECT id, kind, user_id, phone, token, attempts, created_at, expires_at, used_at
FROM ephemeral_tokens
WHERE kind = $1 AND phone = $2 AND used_at IS NULL
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE`

// Issue implements auth.TokenStore.
func (s *TokenStorage) Issue(ctx context.Context, q pg.Querier, params auth.IssueTokenParams) (*auth.EphemeralToken, error) {
	t := &auth.EphemeralToken{
		ID:        uuid.New(),
		Kind:      params.Kind,
		UserID:    params.UserID,
		Phone:     params.Phone,
		Token:     params.Token,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}

	_, err := q.Exec(ctx, insertTokenQuery,
		t.ID,
		t.Kind,
		t.UserID,
		nullable(t.Phone),
		t.Token,
		t.CreatedAt,
		t.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Consume implements auth.TokenStore. Dead-state checks run in a fixed
// order: already used, then attempt cap, then expiry. The mark-used
// write happens under the row lock taken by the lookup.
func (s *TokenStorage) Consume(ctx context.Context, q pg.Querier, kind auth.TokenKind, token string, now time.Time) (*auth.EphemeralToken, error) {
	t, err := scanToken(q.QueryRow(ctx, selectTokenForUpdateQuery, kind, token))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}

	if t.UsedAt != nil {
		return nil, auth.ErrTokenAlreadyUsed
	}
	if t.Attempts >= auth.MaxOTPAttempts {
		return nil, auth.ErrTooManyAttempts
	}
	if now.After(t.ExpiresAt) {
		return nil, auth.ErrTokenExpired
	}

	if err := s.MarkUsed(ctx, q, t.ID, now); err != nil {
		return nil, err
	}
	t.UsedAt = &now

	return t, nil
}

// FindActiveOTP implements auth.TokenStore.
func (s *TokenStorage) FindActiveOTP(ctx context.Context, q pg.Querier, phone string) (*auth.EphemeralToken, error) {
	t, err := scanToken(q.QueryRow(ctx, selectActiveOTPQuery, auth.KindPhoneOTP, phone))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrNoOTPFound
		}
		return nil, err
	}
	return t, nil
}

// RecordFailedAttempt implements auth.TokenStore.
func (s *TokenStorage) RecordFailedAttempt(ctx context.Context, q pg.Querier, id uuid.UUID) (int, error) {
	var attempts int
	err := q.QueryRow(ctx,
		`UPDATE ephemeral_tokens SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, auth.ErrTokenInvalid
		}
		return 0, err
	}
	return attempts, nil
}

// MarkUsed implements auth.TokenStore.
func (s *TokenStorage) MarkUsed(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error {
	tag, err := q.Exec(ctx,
		`UPDATE ephemeral_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenAlreadyUsed
	}
	return nil
}

func scanToken(row interface{ Scan(dest ...any) error }) (*auth.EphemeralToken, error) {
	var (
		t     auth.EphemeralToken
		phone *string
	)
	err := row.Scan(
		&t.ID,
		&t.Kind,
		&t.UserID,
		&phone,
		&t.Token,
		&t.Attempts,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.UsedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		t.Phone = *phone
	}
	return &t, nil
}
