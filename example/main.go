package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/dbvault/dbvault"
	"github.com/dbvault/dbvault/engines/sqlite"
	"github.com/dbvault/dbvault/scan"

	"github.com/dbvault/dbvault/example/internal/config"
	"github.com/dbvault/dbvault/example/internal/vlog"
)

type event struct {
	ID    int64
	Topic string
	Body  string
}

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := vlog.New(cfg.LogLevel)

	v, err := sqlite.Open(ctx, cfg.DBPath,
		sqlite.WithLogger(vlog.Vault{S: logger}),
		sqlite.WithMigrations(
			dbvault.Migration{Name: "events", SQL: `CREATE TABLE events (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                topic TEXT NOT NULL,
                body TEXT NOT NULL
            )`},
		),
	)
	if err != nil {
		log.Fatalf("open vault: %v", err)
	}
	defer func() { _ = v.Close() }()

	err = v.Exec(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO events (topic, body) VALUES (?, ?)`, "order.created", `{"id":42}`)
		return err
	})
	if err != nil {
		log.Fatalf("insert: %v", err)
	}

	events, err := dbvault.Submit(ctx, v, dbvault.ActionFunc[[]event](func(ctx context.Context, conn *sql.Conn) ([]event, error) {
		rows, err := conn.QueryContext(ctx, `SELECT id, topic, body FROM events ORDER BY id`)
		if err != nil {
			return nil, err
		}
		return scan.All[event](rows)
	}))
	if err != nil {
		log.Fatalf("select: %v", err)
	}
	for _, e := range events {
		logger.Info("event", "id", e.ID, "topic", e.Topic, "body", e.Body)
	}
}
