package database

import (
	"os"
	"testing"
)

// PostgresDSN returns the DSN for integration tests, skipping the test when
// no server is configured.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set; skipping postgres integration test")
	}
	return dsn
}
