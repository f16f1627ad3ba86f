package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// CreateUserParams describes a new identity record. Email or Phone must
// be set. A nil PasswordHash creates a passwordless account (magic link,
// OTP).
type CreateUserParams struct {
	Email        string
	Phone        string
	PasswordHash []byte
	Role         string
	AppMetadata  map[string]any
	UserMetadata map[string]any
}

// UserStore persists identity records. Every method runs against the
// caller-supplied Querier so the orchestrator composes multi-row writes
// into one transaction; no method commits on its own.
type UserStore interface {
	// Create inserts the user (and a metadata row when metadata is
	// supplied). Uniqueness on email and phone is enforced by the store,
	// not by pre-checks: concurrent duplicates surface ErrDuplicateIdentity.
	Create(ctx context.Context, q pg.Querier, params CreateUserParams) (*User, error)

	// Lookups exclude soft-deleted users and miss with ErrUserNotFound.
	GetByID(ctx context.Context, q pg.Querier, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, q pg.Querier, email string) (*User, error)
	GetByPhone(ctx context.Context, q pg.Querier, phone string) (*User, error)

	// GetOrCreateByEmail returns the live account for the email, creating
	// an unconfirmed passwordless one when none exists. The insert must
	// not raise on conflict (a raised unique violation would abort the
	// surrounding transaction), so a concurrent first contact resolves to
	// the winner's row instead of failing.
	GetOrCreateByEmail(ctx context.Context, q pg.Querier, email string) (*User, error)

	GetPasswordHash(ctx context.Context, q pg.Querier, id uuid.UUID) ([]byte, error)
	SetPasswordHash(ctx context.Context, q pg.Querier, id uuid.UUID, hash []byte) error

	TouchLastSignIn(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error
	MarkEmailConfirmed(ctx context.Context, q pg.Querier, id uuid.UUID) error
	MarkPhoneConfirmed(ctx context.Context, q pg.Querier, id uuid.UUID) error
	SoftDelete(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error
}

// IssueTokenParams describes a new ephemeral token row.
type IssueTokenParams struct {
	Kind      TokenKind
	UserID    *uuid.UUID
	Phone     string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TokenStore is the ephemeral token ledger. Consume and FindActiveOTP
// take row locks so concurrent verifications of the same secret resolve
// to exactly one winner.
type TokenStore interface {
	Issue(ctx context.Context, q pg.Querier, params IssueTokenParams) (*EphemeralToken, error)

	// Consume atomically checks and marks an email-bound token as used.
	// Failure modes: ErrTokenInvalid (unknown), ErrTokenAlreadyUsed,
	// ErrTokenExpired.
	Consume(ctx context.Context, q pg.Querier, kind TokenKind, token string, now time.Time) (*EphemeralToken, error)

	// FindActiveOTP returns the most recent unused OTP for the phone,
	// locked for the remainder of the transaction, or ErrNoOTPFound.
	FindActiveOTP(ctx context.Context, q pg.Querier, phone string) (*EphemeralToken, error)

	// RecordFailedAttempt increments the attempt counter and returns the
	// new count.
	RecordFailedAttempt(ctx context.Context, q pg.Querier, id uuid.UUID) (int, error)

	// MarkUsed makes the token permanently inert.
	MarkUsed(ctx context.Context, q pg.Querier, id uuid.UUID, at time.Time) error
}

// RefreshTokenStore is the refresh/session registry.
type RefreshTokenStore interface {
	Create(ctx context.Context, q pg.Querier, userID uuid.UUID, token string, createdAt, expiresAt time.Time) error

	// Get misses with ErrInvalidRefreshToken. Revocation and expiry are
	// left on the returned row for the orchestrator to interpret.
	Get(ctx context.Context, q pg.Querier, token string) (*RefreshToken, error)

	// Revoke marks the token revoked with one conditional write. The
	// returned flag reports whether this call flipped it; false means the
	// token was unknown or a concurrent transaction revoked it first.
	// Rotation relies on that flag to give a spent token exactly one
	// successful exchange.
	Revoke(ctx context.Context, q pg.Querier, token string) (bool, error)

	// RevokeAllForUser invalidates every live session of the user, used
	// after password resets and account deletion.
	RevokeAllForUser(ctx context.Context, q pg.Querier, userID uuid.UUID) error
}

// Notifier hands verification secrets to the delivery channel (email,
// SMS). Implementations own delivery; the core calls these after commit
// and never fails an auth flow on delivery errors.
type Notifier interface {
	SendMagicLink(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendOTP(ctx context.Context, phone, code string) error
}
