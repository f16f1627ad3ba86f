// Package audit appends immutable event log entries for every
// security-relevant action in the auth core.
//
// Events are written through the caller's database Querier so that an
// audit entry commits atomically with the flow it describes: a rolled
// back sign-up leaves no audit trace, and a committed one always does.
// The package exposes no way to modify or remove stored events.
package audit
