package dbvault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Migration is one schema change applied on the owned connection before the
// worker starts accepting work. Migrations are ordered by their position in
// the slice and applied at most once; the current position is tracked in a
// single-row dbvault_schema table.
type Migration struct {
	// Name identifies the migration in logs and error messages.
	Name string
	// SQL is passed to a single Exec call. Whether multiple statements are
	// allowed in one migration depends on the driver.
	SQL string
}

func applyMigrations(ctx context.Context, conn *sql.Conn, migrations []Migration, log Logger) error {
	if len(migrations) == 0 {
		return nil
	}

	if _, err := conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS dbvault_schema (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("dbvault: create schema table: %w", err)
	}

	var version int
	err := conn.QueryRowContext(ctx, `SELECT version FROM dbvault_schema`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := conn.ExecContext(ctx, `INSERT INTO dbvault_schema (version) VALUES (0)`); err != nil {
			return fmt.Errorf("dbvault: init schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("dbvault: read schema version: %w", err)
	}

	for i, m := range migrations {
		n := i + 1
		if n <= version {
			continue
		}
		if _, err := conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("dbvault: migration %d (%s): %w", n, m.Name, err)
		}
		// n comes from the loop index, so string building is safe here and
		// keeps the statement placeholder-free across engines.
		if _, err := conn.ExecContext(ctx, fmt.Sprintf(`UPDATE dbvault_schema SET version = %d`, n)); err != nil {
			return fmt.Errorf("dbvault: record migration %d (%s): %w", n, m.Name, err)
		}
		log.Info(ctx, "dbvault: applied migration %d (%s)", n, m.Name)
	}
	return nil
}
