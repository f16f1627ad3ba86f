// Package validator provides the input checks the auth flows run before
// touching the database: email format, E.164 phone numbers (via
// nyaruka/phonenumbers), and password strength. Rules compose through
// Apply, which returns ValidationErrors listing every failed field.
package validator
