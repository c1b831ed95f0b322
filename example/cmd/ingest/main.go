// Command ingest drains an SQS queue into a SQLite file through a vault.
// Any number of handler goroutines could share the vault; the database
// itself only ever sees one writer.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/dbvault/dbvault"
	"github.com/dbvault/dbvault/engines/sqlite"

	"github.com/dbvault/dbvault/example/internal/config"
	"github.com/dbvault/dbvault/example/internal/sqsclient"
	"github.com/dbvault/dbvault/example/internal/vlog"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := vlog.New(cfg.LogLevel)

	client, err := sqsclient.New(ctx, cfg.SQSEndpoint)
	if err != nil {
		log.Fatalf("init sqs client: %v", err)
	}

	v, err := sqlite.Open(ctx, cfg.DBPath,
		sqlite.WithLogger(vlog.Vault{S: logger}),
		sqlite.WithRetryOnBusy(3),
		sqlite.WithMigrations(
			dbvault.Migration{Name: "messages", SQL: `CREATE TABLE messages (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                body TEXT NOT NULL,
                received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
            )`},
		),
	)
	if err != nil {
		log.Fatalf("open vault: %v", err)
	}
	defer func() { _ = v.Close() }()

	logger.Info("ingest listening", "queue", cfg.QueueURL, "db", cfg.DBPath)
	for {
		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(cfg.QueueURL),
			MaxNumberOfMessages: 5,
			WaitTimeSeconds:     5,
			VisibilityTimeout:   30,
		})
		if err != nil {
			logger.Error("receive error", "err", err)
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range resp.Messages {
			body := aws.ToString(msg.Body)
			err := v.Exec(ctx, func(ctx context.Context, conn *sql.Conn) error {
				_, err := conn.ExecContext(ctx, `INSERT INTO messages (body) VALUES (?)`, body)
				return err
			})
			if err != nil {
				logger.Error("store message", "err", err)
				continue
			}
			if msg.ReceiptHandle == nil {
				continue
			}
			if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(cfg.QueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				logger.Error("delete message", "err", err)
			}
		}
	}
}
