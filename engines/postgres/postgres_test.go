package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dbvault/dbvault"
	"github.com/dbvault/dbvault/engines/postgres"
	"github.com/dbvault/dbvault/test/database"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "domain error", err: errors.New("no such customer"), want: false},
		{name: "pg error", err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}, want: true},
		{name: "wrapped pg error", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40001"}), want: true},
	}

	for _, tt := range tests {
		if got := postgres.Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOpenRoundTrip(t *testing.T) {
	t.Parallel()
	dsn := database.PostgresDSN(t)
	ctx := context.Background()

	v, err := postgres.Open(ctx, dsn, dbvault.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })

	got, err := dbvault.Submit(ctx, v, dbvault.ActionFunc[int](func(ctx context.Context, conn *sql.Conn) (int, error) {
		var n int
		err := conn.QueryRowContext(ctx, `SELECT 1`).Scan(&n)
		return n, err
	}))
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if got != 1 {
		t.Fatalf("SELECT 1 = %d", got)
	}
}

// The vault pins one session, so session-local state set by one action is
// visible to the next one.
func TestSessionStateSurvivesAcrossActions(t *testing.T) {
	t.Parallel()
	dsn := database.PostgresDSN(t)
	ctx := context.Background()

	v, err := postgres.Open(ctx, dsn, dbvault.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })

	if err := v.Exec(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `CREATE TEMP TABLE vault_tmp (n INTEGER)`)
		return err
	}); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	if err := v.Exec(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `INSERT INTO vault_tmp (n) VALUES (1)`)
		return err
	}); err != nil {
		t.Fatalf("temp table gone between actions: %v", err)
	}
}
