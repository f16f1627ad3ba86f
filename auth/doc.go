// Package auth implements the identity and session management core:
// signup and sign-in over email/password, magic link, and phone OTP;
// JWT access tokens; rotating refresh tokens with revocation; and
// single-use ephemeral token lifecycles.
//
// The Service orchestrates each public operation as one database
// transaction over injected stores. Input validation happens before any
// I/O; once a transaction is open, any failure rolls back every write
// of the flow, including its audit entry.
//
// Enumeration-sensitive flows (magic-link and password-reset requests)
// report success whether or not the account exists, and sign-in failures
// are uniformly ErrInvalidCredentials.
package auth
