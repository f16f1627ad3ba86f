package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by repositories. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same repository code runs standalone or
// inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx begins a transaction, runs fn with the transactional handle, and
// commits on normal return or rolls back on error/panic. Panics are
// rethrown after rollback.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, q Querier) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, tx)
	return err
}

// TxRunner runs a function inside a database transaction. It exists so
// services can depend on the unit-of-work behaviour without holding a
// concrete pool, which keeps them testable.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
}

type poolRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner wraps a connection pool into a TxRunner backed by WithTx.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolRunner{pool: pool}
}

func (r *poolRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return WithTx(ctx, r.pool, fn)
}
