package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// newLogger creates the command logger. Format "auto" uses slog.TextHandler
// when stderr is a terminal and slog.JSONHandler when it is piped.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}

	useText := format == "text"
	if format == "" || format == "auto" {
		useText = w == os.Stderr && term.IsTerminal(int(os.Stderr.Fd()))
	}

	var handler slog.Handler
	if useText {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
