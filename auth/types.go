package auth

import (
	"time"

	"github.com/google/uuid"
)

// RoleAuthenticated is the default role assigned to new users.
const RoleAuthenticated = "authenticated"

// Audit action names for security-relevant events.
const (
	ActionSignUpEmail            = "SIGNUP_EMAIL"
	ActionSignInEmail            = "SIGNIN_EMAIL"
	ActionMagicLinkSent          = "MAGIC_LINK_SENT"
	ActionMagicLinkVerified      = "MAGIC_LINK_VERIFIED"
	ActionPhoneOTPVerified       = "PHONE_OTP_VERIFIED"
	ActionPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	ActionPasswordResetConfirmed = "PASSWORD_RESET_CONFIRMED"
	ActionTokenRefreshed         = "TOKEN_REFRESHED"
	ActionSignOut                = "SIGNOUT"
	ActionUserDeleted            = "USER_DELETED"
)

// TokenKind discriminates ephemeral token rows.
type TokenKind string

const (
	KindEmailVerification TokenKind = "email_verification"
	KindPasswordReset     TokenKind = "password_reset"
	KindPhoneOTP          TokenKind = "phone_otp"
)

// MaxOTPAttempts caps wrong-code guesses per OTP. Exceeding the cap
// permanently invalidates the code, even for a later correct guess.
const MaxOTPAttempts = 3

// OTPDigits is the length of generated phone OTP codes.
const OTPDigits = 6

// User is an identity record. Email and Phone use the empty string for
// "not set"; a non-deleted user always has at least one of them.
// The password hash is never carried here, it stays behind the store.
type User struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	EmailConfirmed bool           `json:"email_confirmed"`
	PhoneConfirmed bool           `json:"phone_confirmed"`
	Role           string         `json:"role"`
	Banned         bool           `json:"-"`
	AppMetadata    map[string]any `json:"app_metadata,omitempty"`
	UserMetadata   map[string]any `json:"user_metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastSignInAt   *time.Time     `json:"last_sign_in_at,omitempty"`
	DeletedAt      *time.Time     `json:"-"`
}

// EphemeralToken is a single-use, time-bounded secret bound to a user or,
// for pre-account OTP, to a phone number. Once UsedAt is set or ExpiresAt
// has passed the token is permanently inert.
type EphemeralToken struct {
	ID        uuid.UUID
	Kind      TokenKind
	UserID    *uuid.UUID
	Phone     string
	Token     string
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// RefreshToken is an opaque long-lived secret registered per session.
// A revoked or expired refresh token never yields a new access token.
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session is the success payload of every sign-in shaped flow: a fresh
// access/refresh token pair plus the user profile.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}
