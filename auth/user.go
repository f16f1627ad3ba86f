package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// GetUser returns the user profile by id.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user *User
	err := s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		var err error
		user, err = s.users.GetByID(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes the account and kills every live session. The
// row is kept: uniqueness history and the audit trail stay intact.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		user, err := s.users.GetByID(ctx, q, userID)
		if err != nil {
			return err
		}

		if err := s.users.SoftDelete(ctx, q, user.ID, s.now()); err != nil {
			return err
		}

		if err := s.refresh.RevokeAllForUser(ctx, q, user.ID); err != nil {
			return err
		}

		return s.audit(ctx, q, ActionUserDeleted, user.ID)
	})
}
