package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything. Every service
// constructor takes a logger; tests hand them this one.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
