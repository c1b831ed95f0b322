package database

import (
	"os"
	"testing"
)

// MySQLDSN returns the DSN for integration tests, skipping the test when no
// server is configured.
func MySQLDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set; skipping mysql integration test")
	}
	return dsn
}
