package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const txKey contextKey = "db_tx"

// WithTx runs fn inside a transaction. The transaction is stored in the
// context handed to fn, so repository methods called through that context
// share it (see the queryable/conn(ctx) pattern in repo_pg files). A nil
// error from fn commits; anything else rolls back. A nil pool runs fn
// directly, which in-memory repositories rely on.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if pool == nil {
		return fn(ctx)
	}
	// Nested calls join the transaction already in flight.
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxFromContext retrieves the active transaction, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}
