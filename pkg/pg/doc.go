// Package pg provides PostgreSQL plumbing shared by the storage layers:
// pool construction with retry, goose migrations from an embedded
// filesystem, error classification helpers, and an explicit unit-of-work
// (WithTx / TxRunner) used to make every auth flow atomic.
//
// Repositories accept a Querier rather than a concrete pool so a single
// transaction can span user, token, and audit writes.
package pg
