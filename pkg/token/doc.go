// Package token generates the opaque secrets used across the auth core:
// refresh tokens, single-use verification tokens, and numeric OTP codes.
// All values come from crypto/rand; none of them are parseable.
package token
