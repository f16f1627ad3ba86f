// Package mailer delivers transactional email through Postmark, with a
// logging dev sender for local environments. The auth core only hands
// verification tokens to an EmailSender; delivery success is never part
// of an auth transaction.
package mailer
