package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/sanitizer"
	"github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/pkg/validator"
)

// SignUpParams describes an email/password registration request.
type SignUpParams struct {
	Email        string
	Password     string
	UserMetadata map[string]any
}

// SignUpEmail registers a new email/password account. The email starts
// unconfirmed; a token pair is issued immediately. Duplicate identities
// are resolved by the store's uniqueness constraint, so concurrent
// signups with the same email produce exactly one account.
func (s *Service) SignUpEmail(ctx context.Context, params SignUpParams) (*Session, error) {
	email := sanitizer.NormalizeEmail(params.Email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
		validator.StrongPassword("password", params.Password, s.passwordStrength),
	); err != nil {
		return nil, err
	}

	// Hashing is slow on purpose; keep it outside the transaction.
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var session *Session
	err = s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		user, err := s.users.Create(ctx, q, CreateUserParams{
			Email:        email,
			PasswordHash: hash,
			Role:         RoleAuthenticated,
			UserMetadata: params.UserMetadata,
		})
		if err != nil {
			return err
		}

		if err := s.audit(ctx, q, ActionSignUpEmail, user.ID); err != nil {
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

// SignInEmail authenticates an email/password pair. Missing accounts and
// wrong passwords are indistinguishable in both error and timing. The
// banned flag is consulted only after the password check so the two
// failure branches cost the same.
func (s *Service) SignInEmail(ctx context.Context, email, password string) (*Session, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return nil, ErrInvalidCredentials
	}

	var session *Session
	err := s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		user, err := s.users.GetByEmail(ctx, q, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
				return ErrInvalidCredentials
			}
			return err
		}

		hash, err := s.users.GetPasswordHash(ctx, q, user.ID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
				return ErrInvalidCredentials
			}
			// Storage failures are not credential failures.
			return err
		}
		if len(hash) == 0 {
			// Passwordless account: burn the same cost, fail the same way.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return ErrInvalidCredentials
		}

		if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
			return ErrInvalidCredentials
		}

		if user.Banned {
			return ErrAccountBanned
		}

		if err := s.users.TouchLastSignIn(ctx, q, user.ID, s.now()); err != nil {
			return err
		}

		if err := s.audit(ctx, q, ActionSignInEmail, user.ID); err != nil {
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

// RequestPasswordReset issues a reset token for the account, if one
// exists. The response is identical either way: this flow must not
// reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return err
	}

	resetToken, err := token.NewVerificationToken()
	if err != nil {
		return err
	}

	var found bool
	err = s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		user, err := s.users.GetByEmail(ctx, q, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil
			}
			return err
		}
		found = true

		now := s.now()
		if _, err := s.tokens.Issue(ctx, q, IssueTokenParams{
			Kind:      KindPasswordReset,
			UserID:    &user.ID,
			Token:     resetToken,
			CreatedAt: now,
			ExpiresAt: now.Add(s.resetTokenTTL),
		}); err != nil {
			return err
		}

		return s.audit(ctx, q, ActionPasswordResetRequested, user.ID)
	})
	if err != nil {
		return err
	}

	if found {
		s.notify(ctx, "password_reset", func(ctx context.Context) error {
			return s.notifier.SendPasswordReset(ctx, email, resetToken)
		})
	}

	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password,
// and revokes every live session of the user: a stolen refresh token
// must not survive a password change.
func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.passwordStrength),
	); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		consumed, err := s.tokens.Consume(ctx, q, KindPasswordReset, resetToken, s.now())
		if err != nil {
			return err
		}
		if consumed.UserID == nil {
			return ErrTokenInvalid
		}
		userID := *consumed.UserID

		if err := s.users.SetPasswordHash(ctx, q, userID, hash); err != nil {
			return err
		}

		if err := s.refresh.RevokeAllForUser(ctx, q, userID); err != nil {
			return err
		}

		return s.audit(ctx, q, ActionPasswordResetConfirmed, userID)
	})
}
