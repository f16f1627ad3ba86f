package auth

import "errors"

// Identity errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateIdentity = errors.New("email or phone already registered")
	ErrAccountBanned     = errors.New("account is banned")

	// ErrInvalidCredentials is deliberately undifferentiated: callers can
	// not tell a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Ephemeral token lifecycle errors
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// Phone OTP errors
var (
	ErrNoOTPFound      = errors.New("no pending code for this phone number")
	ErrOTPExpired      = errors.New("code expired")
	ErrInvalidOTP      = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
)

// Refresh token errors
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)
