// Package notifier bridges the auth core's delivery interface to the
// email and SMS channels: verification links go out as transactional
// emails, OTP codes as text messages.
package notifier
