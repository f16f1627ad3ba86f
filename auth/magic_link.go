package auth

import (
	"context"

	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/sanitizer"
	"github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/pkg/validator"
)

// RequestMagicLink issues a single-use sign-in token for the email,
// auto-registering an unconfirmed account on first contact. The flow
// always reports success for a well-formed email so it cannot be used
// to probe which addresses are registered.
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return err
	}

	linkToken, err := token.NewVerificationToken()
	if err != nil {
		return err
	}

	err = s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		// Find-or-create must not raise on a concurrent first contact: a
		// unique violation would abort the whole transaction, so the
		// store resolves the race conflict-free and hands back one row.
		user, err := s.users.GetOrCreateByEmail(ctx, q, email)
		if err != nil {
			return err
		}

		now := s.now()
		if _, err := s.tokens.Issue(ctx, q, IssueTokenParams{
			Kind:      KindEmailVerification,
			UserID:    &user.ID,
			Token:     linkToken,
			CreatedAt: now,
			ExpiresAt: now.Add(s.magicLinkTTL),
		}); err != nil {
			return err
		}

		return s.audit(ctx, q, ActionMagicLinkSent, user.ID)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, "magic_link", func(ctx context.Context) error {
		return s.notifier.SendMagicLink(ctx, email, linkToken)
	})

	return nil
}

// VerifyMagicLink consumes a magic-link token, confirms the email, and
// signs the user in. Exactly one concurrent verification of the same
// token can succeed; the others observe ErrTokenAlreadyUsed.
func (s *Service) VerifyMagicLink(ctx context.Context, linkToken string) (*Session, error) {
	var session *Session
	err := s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		consumed, err := s.tokens.Consume(ctx, q, KindEmailVerification, linkToken, s.now())
		if err != nil {
			return err
		}
		if consumed.UserID == nil {
			return ErrTokenInvalid
		}

		user, err := s.users.GetByID(ctx, q, *consumed.UserID)
		if err != nil {
			return err
		}
		if user.Banned {
			return ErrAccountBanned
		}

		if err := s.users.MarkEmailConfirmed(ctx, q, user.ID); err != nil {
			return err
		}
		user.EmailConfirmed = true

		if err := s.users.TouchLastSignIn(ctx, q, user.ID, s.now()); err != nil {
			return err
		}

		if err := s.audit(ctx, q, ActionMagicLinkVerified, user.ID); err != nil {
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
