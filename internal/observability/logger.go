// Package observability configures the process-wide structured logger.
package observability

import (
	"log/slog"
	"os"
)

// logger writes JSON lines to stderr so stdout stays free for command
// output.
var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// Logger returns the shared structured logger.
func Logger() *slog.Logger {
	return logger
}

// WithComponent returns a logger tagged with the originating component.
func WithComponent(name string) *slog.Logger {
	return logger.With("component", name)
}
