// Package mysql opens vaults backed by MySQL through go-sql-driver/mysql,
// for workloads that pin session state (temp tables, user variables,
// GET_LOCK) to a single connection.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dbvault/dbvault"
)

const pingTimeout = 5 * time.Second

// Open connects to dsn and starts a vault owning a single session. Setup,
// Classify and CloseDB in opts are overwritten by the opener. Multi-statement
// migrations need multiStatements=true in the DSN.
func Open(ctx context.Context, dsn string, opts dbvault.Options) (*dbvault.Vault, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
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

// Classify reports whether err was raised by the MySQL server or driver
// rather than by action logic.
func Classify(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return true
	}
	return errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, mysql.ErrPktSync) ||
		errors.Is(err, mysql.ErrBusyBuffer)
}
