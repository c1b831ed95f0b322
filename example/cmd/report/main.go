// Command report prints how many messages the ingest command has stored,
// reading through its own read-only vault on the same file.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/dbvault/dbvault"
	"github.com/dbvault/dbvault/engines/sqlite"
	"github.com/dbvault/dbvault/scan"

	"github.com/dbvault/dbvault/example/internal/config"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	v, err := sqlite.Open(ctx, cfg.DBPath, sqlite.WithReadOnly())
	if err != nil {
		log.Fatalf("open vault: %v", err)
	}
	defer func() { _ = v.Close() }()

	type stat struct {
		Day   string
		Count int64
	}
	stats, err := dbvault.Submit(ctx, v, dbvault.ActionFunc[[]stat](func(ctx context.Context, conn *sql.Conn) ([]stat, error) {
		rows, err := conn.QueryContext(ctx, `
            SELECT DATE(received_at) AS day, COUNT(*) AS count
            FROM messages
            GROUP BY day
            ORDER BY day`)
		if err != nil {
			return nil, err
		}
		return scan.All[stat](rows)
	}))
	if err != nil {
		log.Fatalf("report: %v", err)
	}

	for _, s := range stats {
		fmt.Printf("%s\t%d\n", s.Day, s.Count)
	}
}
