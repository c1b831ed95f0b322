package dbvault

import (
	"context"
	"database/sql"
)

// Action is one unit of work executed against the vault's connection.
//
// Both commands and queries are actions. Run receives the vault's own
// execution context (never the submitter's) together with the owned
// connection, and must not retain conn after returning. An action may issue
// any number of sequential statements; no other action interleaves with it,
// so a multi-statement sequence is atomic from the caller's point of view.
//
// The error Run returns is surfaced to the submitter verbatim unless the
// vault's classifier attributes it to the engine (see Options.Classify).
type Action[T any] interface {
	Run(ctx context.Context, conn *sql.Conn) (T, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc[T any] func(ctx context.Context, conn *sql.Conn) (T, error)

// Run implements Action.
func (f ActionFunc[T]) Run(ctx context.Context, conn *sql.Conn) (T, error) {
	return f(ctx, conn)
}

// Tx returns an action that runs fn inside a transaction on the owned
// connection. The transaction is rolled back when fn returns an error and
// committed otherwise.
func Tx[T any](fn func(ctx context.Context, tx *sql.Tx) (T, error)) Action[T] {
	return ActionFunc[T](func(ctx context.Context, conn *sql.Conn) (T, error) {
		var zero T
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return zero, err
		}
		v, err := fn(ctx, tx)
		if err != nil {
			_ = tx.Rollback()
			return zero, err
		}
		if err := tx.Commit(); err != nil {
			return zero, err
		}
		return v, nil
	})
}
