// Package composables carries request-scoped resources (database pool,
// transaction) through context, so repositories stay ignorant of how their
// connection was obtained.
package composables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

type ctxKey int

const (
	poolKey ctxKey = iota
	txKey
)

// DB is the subset of pgx both *pgxpool.Pool and pgx.Tx satisfy; repositories
// depend on nothing more.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, poolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(poolKey).(*pgxpool.Pool)
	if !ok {
		return nil, ErrNoPool
	}
	return pool, nil
}

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// UseTx returns the transaction bound to ctx, falling back to the pool so
// read paths work outside any transaction.
func UseTx(ctx context.Context) (DB, error) {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx, nil
	}
	return UsePool(ctx)
}

// Transactor runs a function inside a single all-or-nothing unit of work.
// The pgx implementation backs production; tests substitute an in-memory one.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PgxTransactor struct{}

func NewPgxTransactor() *PgxTransactor {
	return &PgxTransactor{}
}

// InTx always opens a fresh transaction from the context pool. Any error from
// fn rolls the whole transaction back; the commit error, if any, is returned
// as-is so callers can classify constraint violations.
func (t *PgxTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
