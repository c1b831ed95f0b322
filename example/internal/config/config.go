package config

import "os"

// Config holds runtime settings for the sample apps.
type Config struct {
	DBPath      string
	SQSEndpoint string
	QueueURL    string
	LogLevel    string
}

// Load reads env vars and returns Config with sensible defaults for
// docker-compose/LocalStack.
func Load() Config {
	cfg := Config{
		DBPath:      "data/events.db",
		SQSEndpoint: "http://localhost:4566",
		QueueURL:    "http://localhost:4566/000000000000/events-queue",
		LogLevel:    "info",
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SQS_ENDPOINT"); v != "" {
		cfg.SQSEndpoint = v
	}
	if v := os.Getenv("QUEUE_URL"); v != "" {
		cfg.QueueURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
