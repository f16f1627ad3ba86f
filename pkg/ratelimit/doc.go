// Package ratelimit provides an in-memory token bucket limiter and an
// HTTP middleware keyed by client IP. The auth endpoints sit behind it
// to slow down credential stuffing and OTP request floods.
package ratelimit
