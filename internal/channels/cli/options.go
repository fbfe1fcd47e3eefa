// Package cli builds the candybowl command tree: the HTTP server, the Discord
// bot, and the operator's manual bookkeeping commands.
package cli

import (
	"io"
	"log/slog"
	"strings"

	"candybowl/internal/config"
)

// Options is shared by every subcommand. ConfigPath is bound to the root
// command's persistent --config flag.
type Options struct {
	ConfigPath string
}

func (o *Options) loadConfig() (config.Config, error) {
	return config.LoadOrDefault(o.ConfigPath)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
