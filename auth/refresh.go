package auth

import (
	"context"
	"errors"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// Refresh exchanges a live refresh token for a fresh access/refresh pair.
// The presented token is revoked in the same transaction (rotation), so a
// replayed token fails with ErrRefreshTokenRevoked. Account state is
// re-read on every refresh; bans and deletions take effect here, not at
// access-token expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var session *Session
	err := s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		row, err := s.refresh.Get(ctx, q, refreshToken)
		if err != nil {
			return err
		}
		if row.Revoked {
			return ErrRefreshTokenRevoked
		}
		if s.now().After(row.ExpiresAt) {
			return ErrRefreshTokenExpired
		}

		user, err := s.users.GetByID(ctx, q, row.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// Soft-deleted account; its sessions are dead.
				return ErrInvalidRefreshToken
			}
			return err
		}
		if user.Banned {
			return ErrAccountBanned
		}

		// The conditional revoke decides rotation races: of two concurrent
		// exchanges of the same token, only the one that flips the flag
		// proceeds; the other observes zero rows and fails as replayed.
		revoked, err := s.refresh.Revoke(ctx, q, refreshToken)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrRefreshTokenRevoked
		}

		if err := s.audit(ctx, q, ActionTokenRefreshed, user.ID); err != nil {
			return err
		}

		session, err = s.issueSession(ctx, q, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// SignOut revokes the presented refresh token. The operation is
// idempotent: unknown or already-revoked tokens are not an error, so a
// client can always safely retry.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		row, err := s.refresh.Get(ctx, q, refreshToken)
		if err != nil {
			if errors.Is(err, ErrInvalidRefreshToken) {
				return nil
			}
			return err
		}

		if _, err := s.refresh.Revoke(ctx, q, refreshToken); err != nil {
			return err
		}

		return s.audit(ctx, q, ActionSignOut, row.UserID)
	})
}
