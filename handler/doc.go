// Package handler exposes the auth service as a JSON HTTP API on a chi
// router. Public flows (signup, sign-in, magic link, OTP, recovery,
// token refresh, signout) live under /auth; account endpoints under
// /user require a bearer access token.
package handler
