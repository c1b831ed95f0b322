package scan_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/dbvault/dbvault/scan"
	"github.com/dbvault/dbvault/test/database"
)

type user struct {
	ID       int64
	FullName string
	Email    *string
	Active   bool
	Note     string `db:"remark"`
}

func openUsers(t *testing.T) *sql.DB {
	t.Helper()
	db := database.OpenSQLite(t)
	ctx := context.Background()
	schema := `CREATE TABLE users (
        id INTEGER PRIMARY KEY,
        full_name TEXT NOT NULL,
        email TEXT,
        active INTEGER NOT NULL,
        remark TEXT NOT NULL DEFAULT ''
    )`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	rows := [][]any{
		{int64(1), "Ada Lovelace", "ada@example.com", 1, "first"},
		{int64(2), "Charles Babbage", nil, 0, "second"},
	}
	for _, r := range rows {
		if _, err := db.ExecContext(ctx, `INSERT INTO users (id, full_name, email, active, remark) VALUES (?, ?, ?, ?, ?)`, r...); err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}
	return db
}

func TestStructMatchesByColumnName(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id, full_name, email, active, remark FROM users ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got, err := scan.All[user](rows)
	if err != nil {
		t.Fatalf("All error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	first := got[0]
	if first.ID != 1 || first.FullName != "Ada Lovelace" || !first.Active || first.Note != "first" {
		t.Fatalf("first = %+v", first)
	}
	if first.Email == nil || *first.Email != "ada@example.com" {
		t.Fatalf("first.Email = %v, want ada@example.com", first.Email)
	}

	second := got[1]
	if second.Email != nil {
		t.Fatalf("second.Email = %v, want nil for NULL column", *second.Email)
	}
	if second.Active {
		t.Fatal("second.Active = true, want false for 0")
	}
}

func TestStructRejectsUnknownColumn(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id, full_name AS nickname FROM users`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatalf("no rows: %v", rows.Err())
	}

	var u user
	if err := scan.Struct(rows, &u); err == nil || !strings.Contains(err.Error(), "nickname") {
		t.Fatalf("Struct error = %v, want unknown column error naming nickname", err)
	}
}

func TestStructRequiresStructPointer(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id FROM users`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatalf("no rows: %v", rows.Err())
	}

	var u user
	if err := scan.Struct(rows, u); err == nil {
		t.Fatal("Struct accepted a non-pointer dest")
	}
	var n int
	if err := scan.Struct(rows, &n); err == nil {
		t.Fatal("Struct accepted a non-struct dest")
	}
}

func TestRowScansPositionally(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id, full_name FROM users WHERE id = 1`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatalf("no rows: %v", rows.Err())
	}

	var (
		id   int64
		name string
	)
	if err := scan.Row(rows, &id, &name); err != nil {
		t.Fatalf("Row error = %v", err)
	}
	if id != 1 || name != "Ada Lovelace" {
		t.Fatalf("row = (%d, %q)", id, name)
	}
}

func TestOneScalar(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT COUNT(*) FROM users`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got, err := scan.One[int64](rows)
	if err != nil {
		t.Fatalf("One error = %v", err)
	}
	if got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestOneNoRows(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id FROM users WHERE id = 999`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := scan.One[int64](rows); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("One error = %v, want %v", err, sql.ErrNoRows)
	}
}

func TestOneRejectsExtraRows(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT id FROM users ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := scan.One[int64](rows); err == nil {
		t.Fatal("One accepted a multi-row result")
	}
}

func TestAllScalars(t *testing.T) {
	t.Parallel()
	db := openUsers(t)

	rows, err := db.Query(`SELECT full_name FROM users ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got, err := scan.All[string](rows)
	if err != nil {
		t.Fatalf("All error = %v", err)
	}
	want := []string{"Ada Lovelace", "Charles Babbage"}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
