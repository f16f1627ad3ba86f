// Package jwt issues and verifies the short-lived signed access tokens of
// the auth core. Tokens are HS256 JWTs carrying subject, email, role,
// issued-at, and expiry; verification is purely cryptographic and never
// touches the database. Revocability lives entirely in the refresh-token
// registry, which is why access-token lifetime is kept short.
package jwt
