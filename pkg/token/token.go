package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrFailedToGenerateToken is returned when the system entropy source fails.
	ErrFailedToGenerateToken = errors.New("failed to generate token")

	// ErrInvalidDigits is returned for OTP code lengths outside the supported range.
	ErrInvalidDigits = errors.New("otp digits must be between 4 and 10")
)

// refreshTokenBytes yields 256 bits of entropy, enough that refresh
// tokens are pure capability secrets with no need for server-side hashing.
const refreshTokenBytes = 32

// verificationTokenBytes sizes single-use verification tokens. These are
// short-lived and low-value, 160 bits keeps the links compact.
const verificationTokenBytes = 20

// NewRefreshToken returns an opaque high-entropy secret. The value is
// random bytes in base64url form and deliberately carries no structure:
// it must not be decodable into anything.
func NewRefreshToken() (string, error) {
	return random(refreshTokenBytes)
}

// NewVerificationToken returns a single-use secret for email verification,
// magic-link, and password-reset flows.
func NewVerificationToken() (string, error) {
	return random(verificationTokenBytes)
}

// NewOTPCode returns a uniformly random numeric code of the given length,
// zero-padded. crypto/rand.Int avoids modulo bias.
func NewOTPCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", ErrInvalidDigits
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateToken, err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

func random(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(ErrFailedToGenerateToken, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
