package dbvault

import (
	"context"
	"database/sql"
	"fmt"
)

// Direct executes actions on a single owned connection without a worker.
// It keeps the Action contract and error classification of Vault but is not
// safe for concurrent use; reach for it when everything runs on one
// goroutine and the channel round-trip is unwanted.
type Direct struct {
	conn *sql.Conn
	opts Options
}

// NewDirect pins one connection from db and brings it to a usable state the
// same way New does (setup, migrations, prepare).
func NewDirect(ctx context.Context, db *sql.DB, opts Options) (*Direct, error) {
	opts.setDefaults()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbvault: acquire connection: %w", err)
	}
	if err := initConn(ctx, conn, opts); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Direct{conn: conn, opts: opts}, nil
}

// RunDirect executes action on d's connection, classifying failures the same
// way the vault worker does.
func RunDirect[T any](ctx context.Context, d *Direct, action Action[T]) (T, error) {
	var zero T
	v, err := action.Run(ctx, d.conn)
	if err != nil {
		return zero, classifyError(d.opts, err)
	}
	return v, nil
}

// Exec runs an action that yields no value.
func (d *Direct) Exec(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	_, err := RunDirect(ctx, d, ActionFunc[struct{}](func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		return struct{}{}, fn(ctx, conn)
	}))
	return err
}

// Close releases the connection.
func (d *Direct) Close() error {
	err := d.conn.Close()
	if d.opts.CloseDB != nil {
		if cerr := d.opts.CloseDB(); err == nil {
			err = cerr
		}
	}
	return err
}
