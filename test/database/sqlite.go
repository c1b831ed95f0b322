// Package database provides throwaway databases for tests.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite returns a private in-memory SQLite DB with the pool clamped to
// a single connection, so the pinned connection and the database share a
// lifetime.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dbvault_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	return openSQLite(t, dsn)
}

// OpenSQLiteFile returns a file-backed SQLite DB under t.TempDir and the
// path to the file. The file survives until the test ends, so a second DB
// opened on the same path sees earlier state.
func OpenSQLiteFile(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	return openSQLite(t, path), path
}

// OpenSQLitePath opens an existing test database file.
func OpenSQLitePath(t *testing.T, path string) *sql.DB {
	t.Helper()
	return openSQLite(t, path)
}

func openSQLite(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping sqlite: %v", err)
	}
	return db
}
