// Package vlog bridges slog into the vault's Logger interface.
package vlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a tinted console slog.Logger at the given level.
func New(level string) *slog.Logger {
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: time.Kitchen,
	})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Vault adapts a slog.Logger to dbvault.Logger.
type Vault struct {
	S *slog.Logger
}

// Info implements dbvault.Logger.
func (l Vault) Info(ctx context.Context, format string, v ...any) {
	l.S.InfoContext(ctx, fmt.Sprintf(format, v...))
}

// Warn implements dbvault.Logger.
func (l Vault) Warn(ctx context.Context, format string, v ...any) {
	l.S.WarnContext(ctx, fmt.Sprintf(format, v...))
}

// Error implements dbvault.Logger.
func (l Vault) Error(ctx context.Context, format string, v ...any) {
	l.S.ErrorContext(ctx, fmt.Sprintf(format, v...))
}
