package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/sanitizer"
	"github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/pkg/validator"
)

// RequestPhoneOTP issues a short-lived 6-digit code for the phone number.
// The code is bound to the phone, not a user: the account is created only
// on successful verification.
func (s *Service) RequestPhoneOTP(ctx context.Context, phone string) error {
	phone = sanitizer.NormalizePhone(phone)
	if err := validator.Apply(validator.ValidPhone("phone", phone)); err != nil {
		return err
	}

	code, err := token.NewOTPCode(OTPDigits)
	if err != nil {
		return err
	}

	err = s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		now := s.now()
		_, err := s.tokens.Issue(ctx, q, IssueTokenParams{
			Kind:      KindPhoneOTP,
			Phone:     phone,
			Token:     code,
			CreatedAt: now,
			ExpiresAt: now.Add(s.otpTTL),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.notify(ctx, "phone_otp", func(ctx context.Context) error {
		return s.notifier.SendOTP(ctx, phone, code)
	})

	return nil
}

// VerifyPhoneOTP checks the submitted code against the most recent
// pending OTP for the phone. Wrong guesses are counted and committed
// even though the flow fails; after MaxOTPAttempts wrong guesses the
// code is dead, a later correct guess still fails with
// ErrTooManyAttempts. On success the account is found or created and
// the phone marked confirmed.
func (s *Service) VerifyPhoneOTP(ctx context.Context, phone, code string) (*Session, error) {
	phone = sanitizer.NormalizePhone(phone)
	if err := validator.Apply(validator.ValidPhone("phone", phone)); err != nil {
		return nil, err
	}

	var (
		session *Session
		flowErr error
	)
	err := s.db.RunInTx(ctx, func(ctx context.Context, q pg.Querier) error {
		otp, err := s.tokens.FindActiveOTP(ctx, q, phone)
		if err != nil {
			return err
		}

		if otp.Attempts >= MaxOTPAttempts {
			return ErrTooManyAttempts
		}

		now := s.now()
		if now.After(otp.ExpiresAt) {
			return ErrOTPExpired
		}

		if subtle.ConstantTimeCompare([]byte(otp.Token), []byte(code)) != 1 {
			// The failed attempt must outlive this transaction, so the
			// increment commits and only the flow result is an error.
			if _, err := s.tokens.RecordFailedAttempt(ctx, q, otp.ID); err != nil {
				return err
			}
			flowErr = ErrInvalidOTP
			return nil
		}

		if err := s.tokens.MarkUsed(ctx, q, otp.ID, now); err != nil {
			return err
		}

		user, err := s.users.GetByPhone(ctx, q, phone)
		if err != nil {
			if !errors.Is(err, ErrUserNotFound) {
				return err
			}
			user, err = s.users.Create(ctx, q, CreateUserParams{
				Phone: phone,
				Role:  RoleAuthenticated,
			})
			if err != nil {
				return err
			}
		}
		if user.Banned {
			return ErrAccountBanned
		}

		if err := s.users.MarkPhoneConfirmed(ctx, q, user.ID); err != nil {
			return err
		}
		user.PhoneConfirmed = true

		if err := s.users.TouchLastSignIn(ctx, q, user.ID, now); err != nil {
			return err
		}

		if err := s.audit(ctx, q, ActionPhoneOTPVerified, user.ID); err != nil {
			return err
		}

		session, err = s.issueSession(ctx, q, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	if flowErr != nil {
		return nil, flowErr
	}

	return session, nil
}
