// Package postgres opens vaults backed by PostgreSQL through pgx's stdlib
// adapter. PostgreSQL connections survive sharing just fine, but schemas
// that lean on session state (temp tables, advisory locks, session GUCs)
// need every statement on the same session; the vault gives exactly that.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dbvault/dbvault"
)

const pingTimeout = 5 * time.Second

// Open connects to dsn and starts a vault owning a single session. Setup,
// Classify and CloseDB in opts are overwritten by the opener.
func Open(ctx context.Context, dsn string, opts dbvault.Options) (*dbvault.Vault, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	opts.Classify = Classify
	opts.CloseDB = db.Close

	v, err := dbvault.New(ctx, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

// Classify reports whether err was raised by the PostgreSQL server or the
// pgx driver rather than by action logic.
func Classify(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.Timeout(err)
}
