package main

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger writing to stdout. Debug level also
// records the source location of each entry.
func NewLogger(level slog.Level) *slog.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(h).With("app", "gem-bot")
}
