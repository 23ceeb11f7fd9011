package app

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a configured slog.Logger based on configuration. When
// LOG_FILE is set the output is also written to a rotating file.
func NewLogger(cfg *Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg != nil && cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{AddSource: true}))
}
