package wplog

import (
	"io"
	"log/slog"
)

// NopLogger discards everything. Handy for tests and for components that
// require a logger but whose output is not interesting.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
