// Package postgres provides the PostgreSQL-backed storage for the auth
// core: users, ephemeral tokens, and the refresh token registry.
//
// The storages are stateless query bundles. They never open their own
// transactions; every method executes against the pg.Querier handed in
// by the orchestrator, which is how multi-table flows stay atomic.
package postgres
