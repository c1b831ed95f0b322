// Package sqlite opens vaults backed by SQLite through modernc.org/sqlite.
// SQLite is the engine the vault pattern exists for: one writer, one file,
// a connection that should only ever be touched from one place.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dbvault/dbvault"
)

const pingTimeout = 5 * time.Second

type config struct {
	busyTimeout time.Duration
	walMode     bool
	foreignKeys bool
	readOnly    bool
	vault       dbvault.Options
}

func defaultConfig() config {
	return config{
		busyTimeout: 5 * time.Second,
		walMode:     true,
		foreignKeys: true,
	}
}

// Option configures an opener.
type Option func(*config)

// WithBusyTimeout overrides the default 5s busy_timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busyTimeout = d }
}

// WithoutWAL keeps the default rollback journal instead of WAL.
func WithoutWAL() Option {
	return func(c *config) { c.walMode = false }
}

// WithoutForeignKeys skips enabling foreign key enforcement.
func WithoutForeignKeys() Option {
	return func(c *config) { c.foreignKeys = false }
}

// WithReadOnly opens the database read-only; the file must exist.
func WithReadOnly() Option {
	return func(c *config) { c.readOnly = true }
}

// WithVault passes vault options through (queue size, logger, prepare hook,
// ...). Setup, Classify and CloseDB are owned by the opener and overwritten.
func WithVault(opts dbvault.Options) Option {
	return func(c *config) { c.vault = opts }
}

// WithMigrations sets the migrations applied before the worker starts.
func WithMigrations(migrations ...dbvault.Migration) Option {
	return func(c *config) { c.vault.Migrations = migrations }
}

// WithLogger sets the vault logger.
func WithLogger(l dbvault.Logger) Option {
	return func(c *config) { c.vault.Logger = l }
}

// WithRetryOnBusy makes the worker re-run actions failing with SQLITE_BUSY
// or SQLITE_LOCKED, up to maxAttempts tries in total.
func WithRetryOnBusy(maxAttempts int) Option {
	return func(c *config) {
		c.vault.MaxAttempts = maxAttempts
		c.vault.Retryable = IsBusy
	}
}

// Open opens (creating if needed) the database file at path and starts a
// vault owning a single connection to it. Pragmas are applied on that
// connection before migrations run.
func Open(ctx context.Context, path string, opts ...Option) (*dbvault.Vault, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.readOnly {
		// journal_mode cannot be changed on a read-only connection.
		cfg.walMode = false
	}

	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
			}
		}
	}

	db, err := open(ctx, buildDSN(path, cfg))
	if err != nil {
		return nil, err
	}

	v, err := dbvault.New(ctx, db, vaultOptions(db, cfg))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

// OpenMemory starts a vault over a fresh private in-memory database. WAL is
// switched off since it is meaningless without a file.
func OpenMemory(ctx context.Context, opts ...Option) (*dbvault.Vault, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.walMode = false

	dsn := fmt.Sprintf("file:dbvault_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	v, err := dbvault.New(ctx, db, vaultOptions(db, cfg))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

// open dials the DSN with the pool clamped to the one connection the vault
// will pin.
func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

func vaultOptions(db *sql.DB, cfg config) dbvault.Options {
	opts := cfg.vault
	opts.Setup = cfg.setup
	opts.Classify = Classify
	opts.CloseDB = db.Close
	return opts
}

// buildDSN leaves file: URIs and :memory: untouched. Read-only needs the
// file: URI form: the driver strips query parameters from plain paths before
// the engine sees them, so mode=ro on a bare path would be ignored and the
// database opened read-write.
func buildDSN(path string, cfg config) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	if cfg.readOnly {
		return "file:" + path + "?mode=ro"
	}
	return path
}

// setup applies session pragmas on the pinned connection. Since the vault's
// connection is the only one, per-connection pragmas (busy_timeout,
// foreign_keys) applied here hold for every action.
func (c config) setup(ctx context.Context, conn *sql.Conn) error {
	pragmas := make([]string, 0, 4)
	if c.foreignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if c.walMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
		pragmas = append(pragmas, "PRAGMA synchronous = NORMAL")
	}
	if c.busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", c.busyTimeout.Milliseconds()))
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

// Classify reports whether err originated in the SQLite engine.
func Classify(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se)
}

// IsBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, the two codes
// worth retrying when another process holds the file.
func IsBusy(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return true
	}
	return false
}
